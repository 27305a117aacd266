// Package segment splits chapter text into sentences.
package segment

import (
	"strings"
)

// Delimiters are the sentence terminators. A line break always terminates.
const Delimiters = "。！？\n"

// ContextSeparator joins the sentences of a context window.
const ContextSeparator = "。"

var (
	openQuotes  = map[rune]bool{'「': true, '『': true}
	closeQuotes = map[rune]bool{'」': true, '』': true}
)

// Split returns the ordered, trimmed, non-empty sentences of text.
//
// Terminal punctuation inside 「」 or 『』 does not end a sentence, so a quoted
// utterance stays with its speech verb. A line break resets quote depth.
func Split(text string) []string {
	var (
		out   []string
		buf   strings.Builder
		depth int
	)
	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
	}
	for _, r := range text {
		switch {
		case r == '\n':
			depth = 0
			flush()
			continue
		case openQuotes[r]:
			depth++
		case closeQuotes[r]:
			if depth > 0 {
				depth--
			}
		case depth == 0 && strings.ContainsRune(Delimiters, r):
			flush()
			continue
		}
		buf.WriteRune(r)
	}
	flush()
	return out
}

// Window returns sentences[i-before : i+after+1] clipped to the slice bounds.
func Window(sentences []string, i, before, after int) []string {
	lo := max(i-before, 0)
	hi := min(i+after+1, len(sentences))
	if lo >= hi {
		return nil
	}
	return sentences[lo:hi]
}

// Join rejoins a context window.
func Join(sentences []string) string {
	return strings.Join(sentences, ContextSeparator)
}
