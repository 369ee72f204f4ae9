package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Finding is one flagged phrase pair from a translation review.
type Finding struct {
	Source      string `json:"source"`
	Translation string `json:"translation"`
	Category    string `json:"category"`
	Rationale   string `json:"rationale"`
}

// Analysis is the result of a translation-quality review. Error is set when
// the review itself failed and the findings were degraded to empty.
type Analysis struct {
	Findings []Finding `json:"findings"`
	Error    string    `json:"error,omitempty"`
}

// JSON renders the analysis for persistence. Marshaling a struct of strings
// cannot fail, so the error is discarded.
func (a Analysis) JSON() string {
	data, _ := json.Marshal(a)
	return string(data)
}

// Errored builds the degraded analysis attached when the review fails.
func Errored(err error) Analysis {
	msg := "quality analysis unavailable"
	if err != nil {
		msg = err.Error()
	}
	return Analysis{Findings: []Finding{}, Error: msg}
}

// DecodeAnalysis parses a model response into an Analysis, tolerating code
// fences and stray prose around the JSON object.
func DecodeAnalysis(content string) (Analysis, error) {
	var analysis Analysis
	if err := decodeModelJSON(content, &analysis); err != nil {
		return Analysis{}, err
	}
	if analysis.Findings == nil {
		analysis.Findings = []Finding{}
	}
	for i := range analysis.Findings {
		analysis.Findings[i].Source = strings.TrimSpace(analysis.Findings[i].Source)
		analysis.Findings[i].Translation = strings.TrimSpace(analysis.Findings[i].Translation)
		analysis.Findings[i].Category = strings.ToLower(strings.TrimSpace(analysis.Findings[i].Category))
		analysis.Findings[i].Rationale = strings.TrimSpace(analysis.Findings[i].Rationale)
	}
	return analysis, nil
}

// decodeModelJSON decodes JSON from a model response, handling common
// formatting quirks.
func decodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized == "" || sanitized == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
