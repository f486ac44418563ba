package pdftext

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize keeps each chunk comfortably inside a single prompt.
const DefaultChunkSize = 12000

// Chunk splits text into pieces of at most maxRunes runes, breaking at
// sentence boundaries where possible. Whitespace is normalized to single
// spaces first, so strings.Join(Chunk(t, n), " ") equals the normalized text
// unless a single word is longer than maxRunes.
func Chunk(text string, maxRunes int) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}
	if maxRunes <= 0 || utf8.RuneCountInString(normalized) <= maxRunes {
		return []string{normalized}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range splitSentences(normalized) {
		for _, piece := range fitPieces(sentence, maxRunes) {
			n := utf8.RuneCountInString(piece)
			if currentLen > 0 && currentLen+1+n > maxRunes {
				flush()
			}
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(piece)
			currentLen += n
		}
	}
	flush()
	return chunks
}

// splitSentences expects whitespace-normalized input. The single space after
// terminal punctuation is the delimiter and is dropped.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && text[i+1] == ' ' {
				sentences = append(sentences, text[start:i+1])
				start = i + 2
				i++
			}
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// fitPieces breaks a sentence longer than maxRunes at word boundaries, and a
// word longer than maxRunes at rune boundaries.
func fitPieces(sentence string, maxRunes int) []string {
	if utf8.RuneCountInString(sentence) <= maxRunes {
		return []string{sentence}
	}

	var pieces []string
	var current strings.Builder
	currentLen := 0
	for _, word := range strings.Split(sentence, " ") {
		n := utf8.RuneCountInString(word)
		if n > maxRunes {
			if currentLen > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
				currentLen = 0
			}
			runes := []rune(word)
			for len(runes) > maxRunes {
				pieces = append(pieces, string(runes[:maxRunes]))
				runes = runes[maxRunes:]
			}
			word = string(runes)
			n = len(runes)
		}
		if currentLen > 0 && currentLen+1+n > maxRunes {
			pieces = append(pieces, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += n
	}
	if currentLen > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}
