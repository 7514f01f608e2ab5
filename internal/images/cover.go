package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
	"golang.org/x/net/html"

	"github.com/lehigh-university-libraries/catscan/internal/storage"
)

const (
	// DefaultCoverPrefix is the URL prefix of cover images on catalog pages.
	DefaultCoverPrefix = "https://catalogue.bnf.fr/couverture"

	// DefaultMaxCoverSize caps the size of a downloaded cover.
	DefaultMaxCoverSize = 10 * 1024 * 1024

	// maxPageSize caps the catalog page scraped for the cover.
	maxPageSize = 5 * 1024 * 1024

	// SuccessMessage is reported when a cover was fetched and stored.
	SuccessMessage = "Cover fetched and uploaded successfully"

	// NotFoundMessage is reported when the page has no cover image.
	NotFoundMessage = "Cover image not found"
)

var (
	// ErrCoverNotFound is returned when the page holds no matching image.
	ErrCoverNotFound = errors.New("cover image not found")
	// ErrTooLarge is returned when a page or image exceeds its size cap.
	ErrTooLarge = errors.New("response exceeds size limit")
)

// Message turns a Resolve outcome into the line shown to the user.
func Message(result *CoverResult, err error) string {
	switch {
	case err == nil && result != nil:
		return result.Message
	case errors.Is(err, ErrCoverNotFound):
		return NotFoundMessage
	case err != nil:
		return "Error fetching cover: " + err.Error()
	default:
		return NotFoundMessage
	}
}

// CoverResult describes a stored cover image.
type CoverResult struct {
	CoverURL string `json:"cover_url"`
	UploadID string `json:"id"`
	Message  string `json:"message"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// CoverResolver scrapes a catalog page for its cover image and uploads it
// into the media library.
type CoverResolver struct {
	HTTPClient *http.Client
	Prefix     string
	MaxBytes   int64
	library    *storage.MediaLibrary
	logger     *slog.Logger
}

// NewCoverResolver creates a resolver storing covers into library.
func NewCoverResolver(library *storage.MediaLibrary, logger *slog.Logger) *CoverResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CoverResolver{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Prefix:   DefaultCoverPrefix,
		MaxBytes: DefaultMaxCoverSize,
		library:  library,
		logger:   logger,
	}
}

// Resolve fetches pageURL, finds the first image whose src contains the cover
// prefix, downloads it and stores it.
func (c *CoverResolver) Resolve(ctx context.Context, pageURL string) (*CoverResult, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("empty cover page URL")
	}

	page, err := c.get(ctx, pageURL, maxPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cover page: %w", err)
	}

	coverURL, err := FindCoverURL(bytes.NewReader(page), c.Prefix)
	if err != nil {
		c.logger.Info("No cover on catalog page", "page", pageURL)
		return nil, err
	}

	data, err := c.get(ctx, coverURL, c.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}

	result := &CoverResult{CoverURL: coverURL, Message: SuccessMessage}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		c.logger.Warn("Failed to parse cover dimensions", "url", coverURL, "error", err)
	} else {
		result.Width = cfg.Width
		result.Height = cfg.Height
	}

	upload, err := c.library.Save(data, extensionFor(format, data))
	if err != nil {
		return nil, fmt.Errorf("failed to upload cover: %w", err)
	}
	result.UploadID = upload.ID

	c.logger.Info("Cover uploaded",
		"page", pageURL,
		"cover_url", coverURL,
		"id", upload.ID,
		"width", result.Width,
		"height", result.Height,
	)
	return result, nil
}

func (c *CoverResolver) get(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, url, limit)
	}
	return data, nil
}

// FindCoverURL returns the src of the first <img> whose src contains prefix.
func FindCoverURL(r io.Reader, prefix string) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse cover page: %w", err)
	}

	if src := findImage(doc, prefix); src != "" {
		return src, nil
	}
	return "", ErrCoverNotFound
}

func findImage(n *html.Node, prefix string) string {
	if n.Type == html.ElementNode && n.Data == "img" {
		for _, attr := range n.Attr {
			if attr.Key == "src" && strings.Contains(attr.Val, prefix) {
				return attr.Val
			}
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if src := findImage(child, prefix); src != "" {
			return src
		}
	}
	return ""
}

func extensionFor(format string, data []byte) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "png", "gif", "webp":
		return "." + format
	}
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".img"
	}
}
