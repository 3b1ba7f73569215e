package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/payflow/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"EntryID", id.NewEntryID, "user_"},
		{"ScheduleID", id.NewScheduleID, "sch_"},
		{"StreamID", id.NewStreamID, "strm_"},
		{"TransferID", id.NewTransferID, "xfer_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixSchedule)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixSchedule {
		t.Errorf("expected prefix %q, got %q", id.PrefixSchedule, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"EntryID", id.NewEntryID, id.ParseEntryID},
		{"ScheduleID", id.NewScheduleID, id.ParseScheduleID},
		{"StreamID", id.NewStreamID, id.ParseStreamID},
		{"TransferID", id.NewTransferID, id.ParseTransferID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	schID := id.NewScheduleID()

	if _, err := id.ParseStreamID(schID.String()); err == nil {
		t.Error("expected stream parser to reject schedule ID")
	}
	if _, err := id.ParseEntryID(schID.String()); err == nil {
		t.Error("expected entry parser to reject schedule ID")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"garbage", "not-a-typeid"},
		{"bad suffix", "sch_!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := id.Parse(tt.input); err == nil {
				t.Errorf("expected error parsing %q", tt.input)
			}
		})
	}
}

func TestNilID(t *testing.T) {
	var nilID id.ID

	if !nilID.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if nilID.String() != "" {
		t.Errorf("nil ID String() = %q, want empty", nilID.String())
	}
	if nilID.Prefix() != "" {
		t.Errorf("nil ID Prefix() = %q, want empty", nilID.Prefix())
	}
}

func TestTextRoundTrip(t *testing.T) {
	original := id.NewTransferID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", restored.String(), original.String())
	}
}

func TestSQLRoundTrip(t *testing.T) {
	original := id.NewEntryID()

	v, err := original.Value()
	if err != nil {
		t.Fatalf("value failed: %v", err)
	}

	var restored id.ID
	if err := restored.Scan(v); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("round-trip mismatch: %q != %q", restored.String(), original.String())
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatalf("scan nil failed: %v", err)
	}
	if !fromNil.IsNil() {
		t.Error("scanning nil should produce a nil ID")
	}
}
