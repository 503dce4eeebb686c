package travel

import "github.com/step2-technology/ga-llm-search/pkg/prompts"

// Prompts is the travel-planning prompt set: the task prompt seeding the
// population, the scoring rubric, the reformat salvage prompt, and the
// single-day optimization prompt used by mutation.
var Prompts = prompts.NewRegistry(map[string]string{
	"task": `You are an expert travel planner.

Create a comprehensive 4-day itinerary for a trip to Shanghai that satisfies the following:

**Must include:**
- Disneyland
- At least two museums
- Local cultural experiences, dining, and leisure
- Family-friendly activities

**Constraints:**
- Total cost must not exceed ¥5000, including accommodation.
- Reasonable daily travel distances

**Output Format Instructions:**
Return ONLY a single valid JSON object, with this exact structure:

{
  "days": [
    {
      "date": "YYYY-MM-DD",
      "activities": [
        {
          "time": "HH:MM",
          "location": "string",
          "description": "string",
          "estimated_cost": float
        }
      ]
    }
  ],
  "hotels": {
    "name": "string",
    "address": "string",
    "total_cost": float
  },
  "total_cost": float
}

**Important:**
- Do NOT return a list or array as the root.
- Do NOT wrap the JSON in markdown formatting (e.g., ` + "```json" + `).
- Do NOT include any explanation or commentary.
- Ensure the output is fully parsable as JSON.`,

	"evaluate": `Score this travel plan (0-10):

- Budget Compliance (0-4)
- Experience Quality (0-3)
- Practicality (0-3)

Plan:
{{solution_text}}

Return only a score like: [8]`,

	"parse_format": `Convert the following travel plan into a structured JSON object.

{{raw_input}}

**Expected Output Format:**
Return ONLY a single JSON object like this:

{
  "days": [
    {
      "date": "YYYY-MM-DD",
      "activities": [
        {
          "time": "HH:MM",
          "location": "string",
          "description": "string",
          "estimated_cost": float
        }
      ]
    }
  ],
  "hotels": {
    "name": "string",
    "address": "string",
    "total_cost": float
  },
  "total_cost": float
}

**Rules:**
- No markdown formatting
- No extra text
- JSON must parse successfully`,

	"mutate_day": `Optimize the following itinerary for one day while staying within a total trip budget of approximately ${{budget}}.

{{current_day}}

**Enhancement Goals:**
- Improve cultural diversity
- Optimize time usage
- Add meaningful local experiences

**Return ONLY the updated JSON for this day**, with this structure:

{
  "date": "YYYY-MM-DD",
  "activities": [
    {
      "time": "HH:MM",
      "location": "string",
      "description": "string",
      "estimated_cost": float
    }
  ]
}

**Rules:**
- Do NOT wrap in markdown (e.g., ` + "```json" + `)
- Do NOT include commentary or explanation
- Output must be directly parsable as JSON`,
})
