package transcribe

import (
	"encoding/json"
	"errors"
	"strings"
)

// document mirrors the transcript JSON the transcription service writes to
// the artifact bucket. Only the fields the pipeline reads are declared.
type document struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ParseDocument extracts the plain transcript text from a transcription
// output document, joining multiple transcript segments with spaces.
func ParseDocument(data []byte) (string, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	parts := make([]string, 0, len(doc.Results.Transcripts))
	for _, t := range doc.Results.Transcripts {
		if text := strings.TrimSpace(t.Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("document contains no transcript text")
	}
	return strings.Join(parts, " "), nil
}
