package logging

// LogEntry represents a structured log record with fields particularly
// relevant to LLM-driven evolution runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Run-specific fields
	ModelID    string // The LLM model being used
	Generation int    // Evolution generation the entry belongs to, -1 if none

	// General structured data
	Fields map[string]interface{}
}
