// Package extract pulls plain text out of uploaded documents for indexing
// and for rendering into agent prompts. Everything works on in-memory
// bytes; worker documents are bounded in size.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Text extracts plain text from a document by content type. Image types
// return empty text: OCR is not wired up, and the pipeline treats missing
// text as a valid outcome.
func Text(ctx context.Context, content []byte, contentType string) (string, error) {
	ct := strings.ToLower(contentType)

	switch {
	case strings.Contains(ct, "pdf"):
		return pdfText(ctx, content)
	case strings.Contains(ct, "word") || strings.Contains(ct, "docx"):
		return docxText(content)
	case strings.HasPrefix(ct, "image/"):
		return "", nil
	default:
		return plainText(content), nil
	}
}

func pdfText(ctx context.Context, content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var parts []string
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			parts = append(parts, fmt.Sprintf("--- Page %d (extraction failed: %v) ---", pageNum, err))
			continue
		}

		if strings.TrimSpace(text) != "" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", pageNum, text))
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

var xmlTag = regexp.MustCompile(`<[^>]+>`)

func docxText(content []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer doc.Close()

	raw := doc.Editable().GetContent()

	// GetContent returns the document XML; strip markup down to text runs.
	text := xmlTag.ReplaceAllString(raw, " ")
	text = strings.Join(strings.Fields(text), " ")
	return text, nil
}

// plainText decodes bytes as UTF-8, falling back to Latin-1 so arbitrary
// byte content never fails extraction.
func plainText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}

	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return string(runes)
}
