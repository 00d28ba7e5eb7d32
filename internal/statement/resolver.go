// Package statement decides which part of an editor buffer is the query
// to run. It never executes anything; it returns text and an optional
// row range the caller can highlight.
package statement

import (
	"errors"
	"strings"

	"github.com/willibrandon/pgnav/internal/models"
)

// ErrNothingToRun is returned when neither the selection nor the buffer
// holds any text.
var ErrNothingToRun = errors.New("nothing to run")

// Resolution is the outcome of resolving a buffer.
type Resolution struct {
	// Text is the query to send.
	Text string
	// Range is the chunk that was chosen. It is only set when the buffer
	// holds more than one chunk and the cursor was inside one of them.
	Range *models.StatementChunk
	// FromSelection is true when the user's selection was used verbatim.
	FromSelection bool
}

// Resolve picks the query to run from buffer given an optional selection
// and the zero-based cursor row.
//
// A non-blank selection always wins. Otherwise the buffer is split into
// chunks of consecutive non-blank lines and the chunk under the cursor is
// returned. A cursor sitting on a blank line falls back to the whole
// trimmed buffer.
func Resolve(buffer, selection string, cursorRow int) (Resolution, error) {
	if sel := strings.TrimSpace(selection); sel != "" {
		return Resolution{Text: sel, FromSelection: true}, nil
	}

	trimmed := strings.TrimSpace(buffer)
	if trimmed == "" {
		return Resolution{}, ErrNothingToRun
	}

	chunks := Chunks(buffer)
	for i := range chunks {
		if !chunks[i].Contains(cursorRow) {
			continue
		}
		res := Resolution{Text: chunks[i].Text}
		if len(chunks) > 1 {
			c := chunks[i]
			res.Range = &c
		}
		return res, nil
	}

	return Resolution{Text: trimmed}, nil
}

// Chunks splits buffer into maximal runs of non-blank lines. A chunk that
// runs to the end of the buffer is complete even without a trailing blank
// line.
func Chunks(buffer string) []models.StatementChunk {
	lines := splitLines(buffer)

	var chunks []models.StatementChunk
	start := -1
	for row, line := range lines {
		blank := strings.TrimSpace(line) == ""
		switch {
		case !blank && start < 0:
			start = row
		case blank && start >= 0:
			chunks = append(chunks, newChunk(lines, start, row))
			start = -1
		}
	}
	if start >= 0 {
		chunks = append(chunks, newChunk(lines, start, len(lines)))
	}
	return chunks
}

func newChunk(lines []string, start, end int) models.StatementChunk {
	return models.StatementChunk{
		Text:     strings.TrimSpace(strings.Join(lines[start:end], "\n")),
		StartRow: start,
		EndRow:   end,
	}
}

func splitLines(buffer string) []string {
	buffer = strings.ReplaceAll(buffer, "\r\n", "\n")
	return strings.Split(buffer, "\n")
}
