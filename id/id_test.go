package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/points/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
		prefix  string
	}{
		{"OperationID", id.NewOperationID, id.ParseOperationID, "pop_"},
		{"AuditID", id.NewAuditID, id.ParseAuditID, "aud_"},
		{"SessionID", id.NewSessionID, id.ParseSessionID, "ses_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			if !strings.HasPrefix(original.String(), tt.prefix) {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, original.String())
			}

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
	if _, err := id.ParseOperationID(id.NewAuditID().String()); err == nil {
		t.Error("ParseOperationID accepted an aud_ ID")
	}
	if _, err := id.ParseAuditID(id.NewSessionID().String()); err == nil {
		t.Error("ParseAuditID accepted a ses_ ID")
	}
	if _, err := id.ParseSessionID(id.NewOperationID().String()); err == nil {
		t.Error("ParseSessionID accepted a pop_ ID")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewOperationID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var empty id.ID
	if err := empty.UnmarshalText(nil); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !empty.IsNil() {
		t.Error("expected nil after unmarshalling empty text")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewOperationID()
	b := id.NewOperationID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewOperationID() calls returned the same ID: %q", a.String())
	}
}
