// Package extractor turns an article source (URL or PDF URL) into plain text
// plus a title for the digest pipeline.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	apperr "github.com/usedigest/digest/server/internal/errors"
)

const (
	// minTextLength is the shortest extraction accepted as an article.
	// Anything shorter is a failure, not success-with-empty-content.
	minTextLength = 100

	fetchTimeout = 30 * time.Second

	// maxPDFBytes caps how much of a remote PDF is buffered in memory.
	maxPDFBytes = 32 << 20

	userAgent = "Mozilla/5.0 (compatible; digest/1.0)"
)

// SourceType selects the extraction strategy.
type SourceType string

const (
	SourceTypeURL    SourceType = "url"
	SourceTypePDFURL SourceType = "pdf_url"
)

// Extractor fetches and extracts article content.
type Extractor struct {
	client    *http.Client
	converter *md.Converter
}

// New creates an extractor with a default HTTP client.
func New() *Extractor {
	return &Extractor{
		client:    &http.Client{Timeout: fetchTimeout},
		converter: md.NewConverter("", true, nil),
	}
}

// Extract returns (text, title) for the given source. All failures are
// ExtractionFailed; they are user-visible and never retried automatically.
func (e *Extractor) Extract(ctx context.Context, source string, sourceType SourceType) (string, string, error) {
	switch sourceType {
	case SourceTypeURL:
		return e.extractURL(ctx, source)
	case SourceTypePDFURL:
		return e.extractPDF(ctx, source)
	default:
		return "", "", apperr.InvalidArgument(fmt.Sprintf("unknown source type: %s", sourceType))
	}
}

func (e *Extractor) extractURL(ctx context.Context, rawURL string) (string, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", apperr.ExtractionFailed("invalid URL", err)
	}

	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		return "", "", apperr.ExtractionFailed("failed to fetch article", err)
	}
	defer body.Close()

	article, err := readability.FromReader(body, parsed)
	if err != nil {
		return "", "", apperr.ExtractionFailed("failed to parse article", err)
	}

	// Markdown keeps headings and emphasis for the LLM; fall back to the
	// plain text content when conversion fails.
	text, err := e.converter.ConvertString(article.Content)
	if err != nil {
		text = article.TextContent
	}
	text = strings.TrimSpace(text)
	if len(text) < minTextLength {
		return "", "", apperr.ExtractionFailed("article text is too short or empty", nil)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Untitled"
	}
	return text, title, nil
}

func (e *Extractor) extractPDF(ctx context.Context, pdfURL string) (string, string, error) {
	body, err := e.fetch(ctx, pdfURL)
	if err != nil {
		return "", "", apperr.ExtractionFailed("failed to fetch PDF", err)
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxPDFBytes))
	if err != nil {
		return "", "", apperr.ExtractionFailed("failed to read PDF body", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", apperr.ExtractionFailed("failed to open PDF", err)
	}

	var sb strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page degrades quantity, not the run.
			continue
		}
		sb.WriteString(cleanText(text))
		sb.WriteString("\n\n")
	}

	text := strings.TrimSpace(sb.String())
	if len(text) < minTextLength {
		return "", "", apperr.ExtractionFailed("PDF text is too short or empty", nil)
	}

	return text, pdfTitle(pdfURL), nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, rawURL)
	}
	return resp.Body, nil
}

// pdfTitle derives a title from the URL path, e.g.
// "https://x.org/papers/attention.pdf" -> "attention".
func pdfTitle(pdfURL string) string {
	parsed, err := url.Parse(pdfURL)
	base := pdfURL
	if err == nil {
		base = parsed.Path
	}
	title := strings.TrimSuffix(path.Base(base), ".pdf")
	if title == "" || title == "." || title == "/" {
		return "Untitled"
	}
	return title
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}
