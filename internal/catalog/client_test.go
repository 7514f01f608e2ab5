package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/catscan/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, Timeout: 5 * time.Second, RatePerSecond: 100, Burst: 10})
}

func TestSearchURL(t *testing.T) {
	c := NewClient(Options{})

	u, err := url.Parse(c.SearchURL("978-2-8116-6142-7"))
	require.NoError(t, err)

	assert.Equal(t, "catalogue.bnf.fr", u.Host)
	assert.Equal(t, "/api/SRU", u.Path)
	q := u.Query()
	assert.Equal(t, "1.2", q.Get("version"))
	assert.Equal(t, "unimarcXchange", q.Get("recordSchema"))
	assert.Equal(t, "searchRetrieve", q.Get("operation"))
	assert.Equal(t, "bib.anywhere all '9782811661427'", q.Get("query"))
}

func TestLookup(t *testing.T) {
	payload, err := os.ReadFile("../record/testdata/sru_book.xml")
	require.NoError(t, err)

	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write(payload)
	})

	rec, err := c.Lookup(context.Background(), "9782811661427", models.CategoryMangas)
	require.NoError(t, err)
	assert.Equal(t, "bib.anywhere all '9782811661427'", gotQuery)
	assert.Equal(t, "978-2-8116-6142-7", rec.SubfieldText("010", "a"))
}

func TestLookupFailures(t *testing.T) {
	empty, err := os.ReadFile("../record/testdata/sru_empty.xml")
	require.NoError(t, err)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(empty)
			},
			want: ErrNotFound,
		},
		{
			name: "empty payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			want: ErrEmptyPayload,
		},
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "down", http.StatusServiceUnavailable)
			},
			want: ErrTransport,
		},
		{
			name: "not xml",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>maintenance</html>"))
			},
			want: ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Lookup(context.Background(), "123", models.CategoryBooks)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchPayloadLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Options{BaseURL: srv.URL, RatePerSecond: 100, MaxPayloadSize: 64})
	payload, err := c.Fetch(context.Background(), "123")
	require.NoError(t, err)
	assert.Len(t, payload, 64)

	c = NewClient(Options{BaseURL: srv.URL, RatePerSecond: 100, MaxPayloadSize: 63})
	_, err = c.Fetch(context.Background(), "123")
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestLookupUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: base, Timeout: time.Second})
	_, err := c.Lookup(context.Background(), "123", models.CategoryBooks)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLookupHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Lookup(ctx, "123", models.CategoryBooks)
	assert.ErrorIs(t, err, ErrTransport)
}
