package searchquery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/step2-technology/ga-llm-search/pkg/errors"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
)

// Result is one search hit in the shape the evaluation prompt consumes.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Searcher executes a search query. Gene operations treat a failed search as
// an empty result set; the evaluator then scores the gene at zero.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// SearcherFunc adapts a plain function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string, maxResults int) ([]Result, error)

func (f SearcherFunc) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	return f(ctx, query, maxResults)
}

// HTTPSearcher calls a serper-style JSON search API: POST {q, page, num}
// with a bearer token, answer box and organic hits in the response. Results
// are cached per query for the life of the searcher, since the engine
// re-issues identical queries across generations.
type HTTPSearcher struct {
	config     *SearcherConfig
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string][]Result
}

// SearcherOption is a functional option for configuring the searcher.
type SearcherOption func(*SearcherConfig)

// SearcherConfig holds configuration for the HTTP searcher.
type SearcherConfig struct {
	endpoint   string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// WithEndpoint sets the full search API URL.
func WithEndpoint(url string) SearcherOption {
	return func(c *SearcherConfig) { c.endpoint = url }
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) SearcherOption {
	return func(c *SearcherConfig) { c.apiKey = key }
}

// WithSearchTimeout sets the per-request timeout.
func WithSearchTimeout(timeout time.Duration) SearcherOption {
	return func(c *SearcherConfig) { c.timeout = timeout }
}

// WithSearchHTTPClient sets a custom HTTP client.
func WithSearchHTTPClient(client *http.Client) SearcherOption {
	return func(c *SearcherConfig) { c.httpClient = client }
}

// NewHTTPSearcher creates a searcher with a 30s default timeout.
func NewHTTPSearcher(opts ...SearcherOption) *HTTPSearcher {
	config := &SearcherConfig{
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(config)
	}

	client := config.httpClient
	if client == nil {
		client = &http.Client{}
	}

	return &HTTPSearcher{
		config:     config,
		httpClient: client,
		cache:      make(map[string][]Result),
	}
}

type searchRequest struct {
	Query string `json:"q"`
	Page  int    `json:"page"`
	Num   int    `json:"num"`
}

type searchHit struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	AnswerBox     *searchHit  `json:"answerBox"`
	Organic       []searchHit `json:"organic"`
	PeopleAlsoAsk []searchHit `json:"peopleAlsoAsk"`
}

// Search implements Searcher. The answer box leads, then organic hits, then
// related questions, truncated to maxResults.
func (s *HTTPSearcher) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	s.mu.Lock()
	cached, hit := s.cache[query]
	s.mu.Unlock()
	if hit {
		logging.GetLogger().Debug(ctx, "search cache hit: %s", query)
		return cached, nil
	}

	results, err := s.fetch(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[query] = results
	s.mu.Unlock()
	return results, nil
}

func (s *HTTPSearcher) fetch(ctx context.Context, query string, maxResults int) ([]Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.config.timeout)
	defer cancel()

	body, err := json.Marshal(searchRequest{Query: query, Page: 1, Num: maxResults})
	if err != nil {
		return nil, errors.Wrap(err, errors.Transport, "failed to marshal search request")
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.config.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.Transport, "failed to create search request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.Transport, "search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WithFields(
			errors.New(errors.Transport, "unexpected search status code"),
			errors.Fields{"status": resp.StatusCode})
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.Transport, "failed to read search response")
	}

	var parsed searchResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.Format, "failed to decode search response")
	}

	results := make([]Result, 0, maxResults)
	if parsed.AnswerBox != nil {
		results = append(results, toResult(*parsed.AnswerBox))
	}
	for _, hit := range parsed.Organic {
		if len(results) >= maxResults {
			break
		}
		results = append(results, toResult(hit))
	}
	for _, hit := range parsed.PeopleAlsoAsk {
		if len(results) >= maxResults {
			break
		}
		results = append(results, toResult(hit))
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

func toResult(hit searchHit) Result {
	return Result{Title: hit.Title, Snippet: hit.Snippet, Link: hit.Link}
}
