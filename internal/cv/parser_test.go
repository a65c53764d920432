package cv

import (
	"errors"
	"strings"
	"testing"

	"nexus-ats/internal/model"
)

func TestExtract_PlainText(t *testing.T) {
	e := NewTextExtractor()
	got, err := e.Extract([]byte("  Senior Go\n\nengineer\t MongoDB  "), model.MimeText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Senior Go engineer MongoDB" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_Unsupported(t *testing.T) {
	e := NewTextExtractor()
	if e.Supports(model.MimePNG) {
		t.Error("PNG should not be supported")
	}
	if _, err := e.Extract([]byte{0x89, 'P', 'N', 'G'}, model.MimePNG); !errors.Is(err, ErrUnsupported) {
		t.Errorf("want ErrUnsupported, got %v", err)
	}
}

func TestExtract_Truncates(t *testing.T) {
	e := &TextExtractor{maxLength: 10}
	got, err := e.Extract([]byte(strings.Repeat("é", 20)), model.MimeText)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > 10 || !strings.HasPrefix(strings.Repeat("é", 5), got) {
		t.Errorf("bad truncation %q (%d bytes)", got, len(got))
	}
}
