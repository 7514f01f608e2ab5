package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/record"
)

// DefaultBaseURL is the SRU endpoint of the BnF catalogue.
const DefaultBaseURL = "https://catalogue.bnf.fr/api/SRU"

// maxPayloadSize caps an SRU response body.
const maxPayloadSize = 5 * 1024 * 1024

var (
	// ErrTransport covers network failures and HTTP error statuses.
	ErrTransport = errors.New("catalog transport error")
	// ErrEmptyPayload is returned when the catalog answers with an empty body.
	ErrEmptyPayload = errors.New("empty catalog response")
	// ErrNotFound is returned when the response holds no record.
	ErrNotFound = errors.New("record not found")
	// ErrPayloadTooLarge is returned when the body exceeds the payload cap.
	ErrPayloadTooLarge = errors.New("catalog response too large")
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RatePerSecond  float64
	Burst          int
	// MaxPayloadSize caps the response body, 5MB when zero.
	MaxPayloadSize int64
	Logger         *slog.Logger
}

// Client looks records up by barcode through an SRU searchRetrieve endpoint.
// It holds no per-session state and is safe for concurrent use.
type Client struct {
	BaseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	maxPayload  int64
	logger      *slog.Logger
}

// NewClient creates a new catalog client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 3
	}
	if opts.MaxPayloadSize <= 0 {
		opts.MaxPayloadSize = maxPayloadSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		BaseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		maxPayload:  opts.MaxPayloadSize,
		logger:      opts.Logger,
	}
}

// NormalizeBarcode strips the hyphens printed inside ISBNs.
func NormalizeBarcode(barcode string) string {
	return strings.ReplaceAll(strings.TrimSpace(barcode), "-", "")
}

// SearchURL builds the searchRetrieve URL for a barcode.
func (c *Client) SearchURL(barcode string) string {
	params := url.Values{}
	params.Set("version", "1.2")
	params.Set("recordSchema", "unimarcXchange")
	params.Set("operation", "searchRetrieve")
	params.Set("query", fmt.Sprintf("bib.anywhere all '%s'", NormalizeBarcode(barcode)))
	return c.BaseURL + "?" + params.Encode()
}

// Lookup fetches the first record matching barcode. The category is only
// used for logging: the catalog query is the same for every media kind.
func (c *Client) Lookup(ctx context.Context, barcode string, category models.Category) (*record.Record, error) {
	payload, err := c.Fetch(ctx, barcode)
	if err != nil {
		return nil, err
	}

	rec, err := record.ParseFirst(bytes.NewReader(payload))
	if err != nil {
		if errors.Is(err, record.ErrNoRecord) {
			c.logger.Info("No catalog record for barcode", "barcode", barcode, "category", category)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, barcode)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	c.logger.Info("Catalog record found", "barcode", barcode, "category", category, "id", rec.Identifier)
	return rec, nil
}

// Fetch returns the raw SRU payload for barcode.
func (c *Client) Fetch(ctx context.Context, barcode string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrTransport, err)
	}

	searchURL := c.SearchURL(barcode)
	c.logger.Debug("Querying catalog", "url", searchURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.maxPayload+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrTransport, err)
	}
	if int64(len(payload)) > c.maxPayload {
		return nil, fmt.Errorf("%w: over %d bytes", ErrPayloadTooLarge, c.maxPayload)
	}

	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ErrEmptyPayload
	}

	return payload, nil
}
