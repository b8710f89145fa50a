package specialist

import (
	"encoding/json"
	"strings"

	"github.com/ShayCichocki/validator/pkg/models"
)

// ParseReport extracts the structured report a specialist appends to its
// answer as a fenced json block. It returns nil when no valid report is found.
// The last fenced block wins since specialists put the report at the end.
func ParseReport(text string) *models.Report {
	for _, block := range reverse(fencedJSON(text)) {
		var r models.Report
		if err := json.Unmarshal([]byte(block), &r); err != nil {
			continue
		}
		if r.Valid() {
			return &r
		}
	}

	// Some models skip the fence and end with a bare object.
	if i := strings.LastIndex(text, "\n{"); i >= 0 {
		var r models.Report
		if err := json.Unmarshal([]byte(strings.TrimSpace(text[i:])), &r); err == nil && r.Valid() {
			return &r
		}
	}
	return nil
}

func fencedJSON(text string) []string {
	var blocks []string
	rest := text
	for {
		start := strings.Index(rest, "```json")
		if start < 0 {
			return blocks
		}
		body := rest[start+len("```json"):]
		end := strings.Index(body, "```")
		if end < 0 {
			return blocks
		}
		blocks = append(blocks, strings.TrimSpace(body[:end]))
		rest = body[end+3:]
	}
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
