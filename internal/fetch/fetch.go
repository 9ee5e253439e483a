// Package fetch acquires analysis inputs: tender web pages reduced to plain
// text, and local files turned into text or inline image payloads.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/backend-developer-hojiakbar/mebel/internal/models"
)

const (
	fetchTimeout     = 20 * time.Second
	maxContentLength = 1024 * 1024 // 1MB
	maxTextLength    = 60000       // truncate for prompt budgets
	userAgent        = "Mozilla/5.0 (compatible; MebelBot/1.0)"
)

// ErrUnsupportedFormat is returned for files the client cannot turn into
// text. PDF and Word extraction happens upstream of the pipeline.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Client fetches tender pages and local documents.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a fetch client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: fetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Page downloads a tender listing and returns its visible text.
func (c *Client) Page(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("failed to fetch page: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxContentLength))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	return HTMLToText(string(body)), nil
}

// textExtensions are file types read directly as text.
var textExtensions = map[string]bool{
	".txt": true, ".text": true, ".md": true, ".csv": true,
	".html": true, ".htm": true,
}

// imageMIMETypes maps image file extensions to MIME types.
var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Document reads a local file as plain text. HTML files are reduced to
// visible text; binary formats are rejected with ErrUnsupportedFormat.
func Document(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !textExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	text := string(data)
	if ext == ".html" || ext == ".htm" {
		text = HTMLToText(text)
	}
	return text, nil
}

// Image reads a local image file as a base64 inline payload.
func Image(path string) (models.ImagePayload, error) {
	mimeType, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return models.ImagePayload{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.ImagePayload{}, fmt.Errorf("failed to read image: %w", err)
	}

	return models.ImagePayload{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// HTMLToText converts an HTML document to plain text.
func HTMLToText(htmlContent string) string {
	scriptPattern := regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	stylePattern := regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)

	htmlContent = scriptPattern.ReplaceAllString(htmlContent, "")
	htmlContent = stylePattern.ReplaceAllString(htmlContent, "")

	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// Fallback: strip all tags
		tagPattern := regexp.MustCompile(`<[^>]+>`)
		return cleanText(tagPattern.ReplaceAllString(htmlContent, " "))
	}

	var sb strings.Builder
	extractText(doc, &sb)
	return cleanText(sb.String())
}

// extractText recursively extracts text from HTML nodes. Table cells get a
// separator so tender line-item tables survive the flattening.
func extractText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteString(" ")
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
			sb.WriteString("\n")
		case "td", "th":
			sb.WriteString(" | ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb)
	}
}

// cleanText normalizes whitespace and truncates text.
func cleanText(text string) string {
	text = html.UnescapeString(text)

	spacePattern := regexp.MustCompile(`[ \t]+`)
	text = spacePattern.ReplaceAllString(text, " ")

	newlinePattern := regexp.MustCompile(`\n{3,}`)
	text = newlinePattern.ReplaceAllString(text, "\n\n")

	text = strings.TrimSpace(text)

	if len(text) > maxTextLength {
		text = text[:maxTextLength] + "\n...[truncated]"
	}

	return text
}
