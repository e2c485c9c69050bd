// Package chunker splits extracted text into overlapping fixed-size pieces
// suitable for embedding.
package chunker

import "strings"

// Defaults are fixed for the whole system, not user-tunable.
const (
	DefaultSize    = 1000
	DefaultOverlap = 50

	// lookback bounds how far a cut point may back up from the size limit in
	// search of a structural boundary.
	lookback = 100
)

// Piece is one chunk of a document, with its rune-offset span in the input.
// Spans are contiguous modulo overlap: piece i+1 starts exactly Overlap runes
// before piece i ends, so concatenating de-overlapped pieces reconstructs the
// input text.
type Piece struct {
	Index int
	Start int
	End   int
	Text  string
}

// Splitter cuts text into pieces of at most Size runes overlapping by Overlap
// runes. Cut points prefer a paragraph break, then a sentence end, then a
// word boundary, within the lookback window; otherwise the cut is mid-word at
// the size limit. Splitting is deterministic.
type Splitter struct {
	Size    int
	Overlap int
}

func NewSplitter() *Splitter {
	return &Splitter{Size: DefaultSize, Overlap: DefaultOverlap}
}

// Split returns the pieces of text, or nil for empty input.
func (s *Splitter) Split(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	size := s.Size
	if size <= 0 {
		size = DefaultSize
	}
	overlap := s.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var out []Piece

	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, start, end, overlap)
		}

		out = append(out, Piece{
			Index: len(out),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
		start = end - overlap
	}

	return out
}

// cutPoint backs up from the size limit toward the best structural boundary.
// The cut never backs up past start+overlap+1, which keeps every step making
// forward progress.
func cutPoint(runes []rune, start, limit, overlap int) int {
	floor := limit - lookback
	if min := start + overlap + 1; floor < min {
		floor = min
	}
	if floor >= limit {
		return limit
	}

	// Paragraph break: cut after the blank line.
	for i := limit; i > floor; i-- {
		if i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	// Sentence end: cut after ".", "!" or "?" followed by whitespace, or a
	// newline.
	for i := limit; i > floor; i-- {
		prev := runes[i-1]
		if prev == '\n' {
			return i
		}
		if i >= 2 && isSpace(prev) && isSentenceEnd(runes[i-2]) {
			return i
		}
	}
	// Word boundary.
	for i := limit; i > floor; i-- {
		if isSpace(runes[i-1]) {
			return i
		}
	}
	// A single indivisible run longer than the lookback window: cut mid-word.
	return limit
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Reassemble reconstructs the original text from pieces produced by Split,
// dropping each piece's overlapping prefix.
func Reassemble(pieces []Piece) string {
	var b strings.Builder
	prevEnd := 0
	for _, p := range pieces {
		runes := []rune(p.Text)
		skip := prevEnd - p.Start
		if skip < 0 {
			skip = 0
		}
		if skip > len(runes) {
			skip = len(runes)
		}
		b.WriteString(string(runes[skip:]))
		prevEnd = p.End
	}
	return b.String()
}
