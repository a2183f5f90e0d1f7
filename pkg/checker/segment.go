package checker

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"termcheck/pkg/models"
)

// Segment is a slice of the original text, either plain or flagged with the
// term it was matched to. Concatenating the texts of all segments gives back
// the original text.
type Segment struct {
	Text       string       `json:"text"`
	Flagged    bool         `json:"flagged"`
	Term       *models.Term `json:"term,omitempty"`
	Confidence Confidence   `json:"confidence,omitempty"`
}

// Segments projects spans back onto original. Every token is looked up with
// a forward-only cursor; the text between two tokens stays with the second
// one, except in front of a flagged run, where it closes the preceding plain
// segment. If a token cannot be found, the rest of the text is returned as a
// single plain segment.
func Segments(original string, tokens []Token, spans []Span) []Segment {
	owner := make([]int, len(tokens))
	for i := range owner {
		owner[i] = -1
	}
	for si, sp := range spans {
		for i := sp.Start; i < sp.End && i < len(tokens); i++ {
			if i >= 0 {
				owner[i] = si
			}
		}
	}

	w := segmentWriter{spans: spans, cur: -1}
	cursor := 0
	for i, t := range tokens {
		at := -1
		if t.Original != "" {
			at = strings.Index(original[cursor:], t.Original)
		}
		if at < 0 {
			log.Warnf("[checker] token %d %q not found after offset %d, rest of text left unflagged", i, t.Original, cursor)
			break
		}

		gap := original[cursor : cursor+at]
		cursor += at + len(t.Original)
		w.token(owner[i], gap, t.Original)
	}
	w.plain(original[cursor:])

	return w.segments()
}

// segmentWriter buffers the text of the segment being built. cur is the span
// owning the buffer, -1 for plain text.
type segmentWriter struct {
	spans []Span
	out   []Segment
	buf   strings.Builder
	cur   int
	open  bool
}

func (w *segmentWriter) token(owner int, gap, word string) {
	switch {
	case w.open && owner == w.cur:
		w.buf.WriteString(gap)
		w.buf.WriteString(word)
	case owner < 0:
		w.start(-1)
		w.buf.WriteString(gap)
		w.buf.WriteString(word)
	default:
		w.plain(gap)
		w.start(owner)
		w.buf.WriteString(word)
	}
}

func (w *segmentWriter) plain(s string) {
	if s == "" {
		return
	}
	if !w.open || w.cur >= 0 {
		w.start(-1)
	}
	w.buf.WriteString(s)
}

func (w *segmentWriter) start(owner int) {
	w.flush()
	w.cur = owner
	w.open = true
}

func (w *segmentWriter) flush() {
	if !w.open {
		return
	}

	seg := Segment{Text: w.buf.String()}
	if w.cur >= 0 {
		term := w.spans[w.cur].Term
		seg.Flagged = true
		seg.Term = &term
		seg.Confidence = w.spans[w.cur].Confidence
	}
	w.out = append(w.out, seg)
	w.buf.Reset()
	w.open = false
	w.cur = -1
}

func (w *segmentWriter) segments() []Segment {
	w.flush()
	if len(w.out) == 0 {
		return []Segment{{Text: ""}}
	}
	return w.out
}
