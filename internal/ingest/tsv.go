// Package ingest reads raw call transcripts from their delivery formats and
// runs the annotation job worker.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Record is one ingested transcript row.
type Record struct {
	ConversationID string
	UserID         string
	Date           string // YYYY-MM-DD
	Time           string // HH:MM:SS
	Transcript     string
}

const tsvFieldCount = 5

// maxLineSize bounds a single physical line; transcript fields can be large.
const maxLineSize = 1 << 20

// ParseTSV reads tab-separated transcript records with the columns
// conversationId, userId, date, time, transcript. The transcript field may
// contain embedded newlines: a physical line with fewer than five
// tab-separated fields is a continuation of the previous record's
// transcript. An optional header row is skipped.
func ParseTSV(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var records []Record
	var current *Record
	lineNo := 0

	for scanner.Scan() {
		line := scanner.Text()
		lineNo++

		parts := strings.SplitN(line, "\t", tsvFieldCount)
		if len(parts) == tsvFieldCount {
			if lineNo == 1 && strings.EqualFold(strings.TrimSpace(parts[0]), "conversationId") {
				continue
			}
			if strings.TrimSpace(parts[0]) == "" {
				return nil, fmt.Errorf("line %d: empty conversationId", lineNo)
			}
			if current != nil {
				records = append(records, *current)
			}
			current = &Record{
				ConversationID: strings.TrimSpace(parts[0]),
				UserID:         strings.TrimSpace(parts[1]),
				Date:           strings.TrimSpace(parts[2]),
				Time:           strings.TrimSpace(parts[3]),
				Transcript:     parts[4],
			}
			continue
		}

		// Continuation of the previous record's transcript field.
		if current == nil {
			return nil, fmt.Errorf("line %d: expected %d tab-separated fields, got %d", lineNo, tsvFieldCount, len(parts))
		}
		current.Transcript += "\n" + line
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript records: %w", err)
	}

	if current != nil {
		records = append(records, *current)
	}
	return records, nil
}
