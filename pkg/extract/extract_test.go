package extract

import (
	"context"
	"strings"
	"testing"
)

func TestPlainTextPassthrough(t *testing.T) {
	got, err := Text(context.Background(), []byte("hello world"), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello world" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestPlainTextLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 but invalid standalone UTF-8.
	got, err := Text(context.Background(), []byte{'c', 'a', 'f', 0xE9}, "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "café" {
		t.Errorf("expected Latin-1 fallback, got %q", got)
	}
}

func TestImageReturnsEmptyText(t *testing.T) {
	got, err := Text(context.Background(), []byte{0xFF, 0xD8, 0xFF}, "image/jpeg")
	if err != nil {
		t.Fatalf("image extraction must not error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text for image, got %q", got)
	}
}

func TestUnknownContentTypeFallsBackToPlainText(t *testing.T) {
	got, err := Text(context.Background(), []byte("raw bytes"), "application/octet-stream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "raw bytes" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestCorruptPDFErrors(t *testing.T) {
	_, err := Text(context.Background(), []byte("definitely not a pdf"), "application/pdf")
	if err == nil {
		t.Fatal("expected error for corrupt PDF")
	}
}

func TestCorruptDocxErrors(t *testing.T) {
	_, err := Text(context.Background(), []byte("definitely not a docx"),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	if err == nil {
		t.Fatal("expected error for corrupt DOCX")
	}
	if !strings.Contains(err.Error(), "Word") {
		t.Errorf("error should name the format: %v", err)
	}
}
