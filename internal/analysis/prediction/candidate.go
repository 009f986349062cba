package prediction

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/Alias1177/ChartPredictor/models"
)

// Candidate is an untrusted, decoded LLM answer. A nil Candidate means the model
// produced nothing usable.
type Candidate map[string]any

var codeBlock = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*\\n?(.*?)\\n?```$")

// stripMarkdownCodeBlock removes a ```json ... ``` wrapper around a model answer
func stripMarkdownCodeBlock(response string) string {
	response = strings.TrimSpace(response)
	if matches := codeBlock.FindStringSubmatch(response); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return response
}

// ParseCandidate extracts the JSON object from raw model text. Any text around the
// object is ignored. Unparseable text yields nil.
func ParseCandidate(text string) Candidate {
	text = stripMarkdownCodeBlock(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}

	candidate, err := DecodeCandidate([]byte(text[start : end+1]))
	if err != nil {
		return nil
	}
	return candidate
}

// DecodeCandidate decodes JSON into a Candidate. Valid JSON that is not an object
// (null, arrays, scalars) decodes to a nil Candidate without error.
func DecodeCandidate(data []byte) (Candidate, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, nil
	}
	return Candidate(obj), nil
}

// CandidateFromResult turns a result back into a candidate so it can be reconciled
// again, for example when re-validating stored rows.
func CandidateFromResult(r models.PredictionResult) Candidate {
	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	candidate, err := DecodeCandidate(data)
	if err != nil {
		return nil
	}
	return candidate
}
