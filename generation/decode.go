package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/andrewpaige1/doomdeck-api/models"
	"github.com/microcosm-cc/bluemonday"
)

// ErrMalformedOutput wraps every failure to turn model output into cards.
var ErrMalformedOutput = errors.New("malformed model output")

var plainText = bluemonday.StrictPolicy()

// ParseFlashcards decodes the model's JSON reply. It accepts
// {"flashcards": [...]}, an object with a single array-valued field, or a
// bare array, and tolerates code fences around the payload. Cards without
// usable content are dropped; no usable cards at all is an error.
func ParseFlashcards(content string) ([]models.Flashcard, error) {
	var raw json.RawMessage
	if err := decodeModelJSON(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	list, err := cardList(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var decoded []models.Flashcard
	if err := json.Unmarshal(list, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode cards: %v", ErrMalformedOutput, err)
	}

	cards := make([]models.Flashcard, 0, len(decoded))
	for _, card := range decoded {
		card.Front = stripMarkup(card.Front)
		card.Back = stripMarkup(card.Back)
		card.Caption = stripMarkup(card.Caption)
		card.AdditionalNotes = stripMarkup(card.AdditionalNotes)
		if !card.Valid() {
			continue
		}
		card.Position = len(cards)
		cards = append(cards, card)
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: no flashcards with front and back", ErrMalformedOutput)
	}
	return cards, nil
}

func cardList(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		return raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("expected object or array: %v", err)
	}
	if list, ok := fields["flashcards"]; ok {
		return list, nil
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if v := strings.TrimSpace(string(fields[key])); strings.HasPrefix(v, "[") {
			return fields[key], nil
		}
	}
	return nil, errors.New(`no "flashcards" array in payload`)
}

func stripMarkup(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

// decodeModelJSON unmarshals content, retrying once with code fences and
// surrounding prose removed.
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
		return fmt.Errorf("%w (payload snippet: %s)", directErr, snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(sanitized), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, snippet(sanitized))
	}
	return nil
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
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

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
