// Package jsonextract pulls a JSON object out of free-form model output.
//
// Language models often wrap the object they were asked for in prose or a
// fenced code block. Extract tries, in order: the first ```json fenced block,
// then the span from the first '{' to the last '}'. If neither yields valid
// JSON the text is rejected.
package jsonextract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no valid JSON object can be found in the text.
var ErrNoJSON = errors.New("no JSON object found in text")

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n(.*?)```")

// Extract returns the raw bytes of the first JSON object found in text.
func Extract(text string) ([]byte, error) {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: braced span is not valid JSON", ErrNoJSON)
	}
	return []byte(candidate), nil
}

// Decode extracts the JSON object from text and unmarshals it into v.
func Decode(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return nil
}
