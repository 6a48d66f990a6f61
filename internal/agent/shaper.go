package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QueryResult is the transient result of one gated query. row_count is the
// total matching count before truncation; returned_rows the number actually
// materialized.
type QueryResult struct {
	RowCount     int              `json:"row_count"`
	ReturnedRows int              `json:"returned_rows"`
	Columns      []string         `json:"columns"`
	Rows         []map[string]any `json:"rows"`
}

// ShapeResult serializes a QueryResult into the exact payload contract
// consumed by the summarizer: {row_count, returned_rows, columns, rows},
// keys in that order, compact encoding. columns and rows are always arrays,
// never null, even for empty result sets.
func ShapeResult(r *QueryResult) ([]byte, error) {
	if r.Columns == nil {
		r.Columns = []string{}
	}
	if r.Rows == nil {
		r.Rows = []map[string]any{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encoding query result: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
