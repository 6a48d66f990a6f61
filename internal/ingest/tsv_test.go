package ingest

import (
	"strings"
	"testing"
)

func TestParseTSV_Basic(t *testing.T) {
	input := "call-001\tuser-1\t2026-08-12\t14:03:00\tAgent: Hello\n" +
		"call-002\tuser-2\t2026-08-13\t09:15:00\tAgent: Hi there"

	records, err := ParseTSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ConversationID != "call-001" || records[0].Transcript != "Agent: Hello" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Date != "2026-08-13" || records[1].Time != "09:15:00" {
		t.Errorf("record 1 = %+v", records[1])
	}
}

func TestParseTSV_SkipsHeader(t *testing.T) {
	input := "conversationId\tuserId\tdate\ttime\ttranscript\n" +
		"call-001\tuser-1\t2026-08-12\t14:03:00\tAgent: Hello"

	records, err := ParseTSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ConversationID != "call-001" {
		t.Errorf("record = %+v", records[0])
	}
}

// Lines with fewer than five fields continue the previous record's
// transcript, preserving embedded newlines.
func TestParseTSV_MultilineTranscript(t *testing.T) {
	input := "call-001\tuser-1\t2026-08-12\t14:03:00\tAgent: Hello\n" +
		"Customer: My bill is wrong.\n" +
		"Agent: Let me check.\n" +
		"call-002\tuser-2\t2026-08-13\t09:15:00\tAgent: Hi"

	records, err := ParseTSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	want := "Agent: Hello\nCustomer: My bill is wrong.\nAgent: Let me check."
	if records[0].Transcript != want {
		t.Errorf("transcript = %q, want %q", records[0].Transcript, want)
	}
	if records[1].Transcript != "Agent: Hi" {
		t.Errorf("record 1 transcript = %q", records[1].Transcript)
	}
}

func TestParseTSV_ContinuationWithoutRecord(t *testing.T) {
	if _, err := ParseTSV(strings.NewReader("just some text")); err == nil {
		t.Error("expected error for continuation line before any record")
	}
}

func TestParseTSV_EmptyConversationID(t *testing.T) {
	input := "\tuser-1\t2026-08-12\t14:03:00\tAgent: Hello"
	if _, err := ParseTSV(strings.NewReader(input)); err == nil {
		t.Error("expected error for empty conversationId")
	}
}

func TestParseTSV_Empty(t *testing.T) {
	records, err := ParseTSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}
