package agent

import (
	"strings"
	"testing"
)

func TestShapeResult_KeyOrder(t *testing.T) {
	payload, err := ShapeResult(&QueryResult{
		RowCount:     3,
		ReturnedRows: 2,
		Columns:      []string{"conversation_id"},
		Rows: []map[string]any{
			{"conversation_id": "call-001"},
			{"conversation_id": "call-002"},
		},
	})
	if err != nil {
		t.Fatalf("ShapeResult: %v", err)
	}

	s := string(payload)
	// Struct field order fixes the key order in the encoded object.
	rc := strings.Index(s, `"row_count":3`)
	rr := strings.Index(s, `"returned_rows":2`)
	cols := strings.Index(s, `"columns":`)
	rows := strings.Index(s, `"rows":`)
	if rc == -1 || rr == -1 || cols == -1 || rows == -1 {
		t.Fatalf("payload missing keys: %s", s)
	}
	if !(rc < rr && rr < cols && cols < rows) {
		t.Errorf("key order wrong: %s", s)
	}
}

func TestShapeResult_EmptyIsArraysNotNull(t *testing.T) {
	payload, err := ShapeResult(&QueryResult{})
	if err != nil {
		t.Fatalf("ShapeResult: %v", err)
	}

	s := string(payload)
	if !strings.Contains(s, `"columns":[]`) {
		t.Errorf("columns must encode as [], got %s", s)
	}
	if !strings.Contains(s, `"rows":[]`) {
		t.Errorf("rows must encode as [], got %s", s)
	}
	if strings.Contains(s, "null") {
		t.Errorf("empty result must not contain null: %s", s)
	}
}
