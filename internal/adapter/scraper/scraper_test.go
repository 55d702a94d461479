package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-star-curator/internal/common"
)

const listPage = `<!DOCTYPE html>
<html><body>
<div id="user-list-repositories">
  <div class="border-bottom">
    <h3><a href="/gohugoio/hugo/">gohugoio / hugo</a></h3>
    <p itemprop="description">
      The world's fastest framework for building websites.
    </p>
    <span itemprop="programmingLanguage">Go</span>
    <a href="/gohugoio/hugo/stargazers">
      <svg></svg>
      78.4k
    </a>
    <a href="/gohugoio/hugo/forks">7,512</a>
    <relative-time datetime="2025-02-20T09:15:00Z">Feb 20</relative-time>
  </div>
  <div class="border-bottom">
    <h3><a href="/charmbracelet/bubbletea">charmbracelet / bubbletea</a></h3>
    <a href="/charmbracelet/bubbletea/stargazers">532</a>
  </div>
  <div class="border-bottom">
    <p>block without a name link</p>
  </div>
</div>
<div class="border-bottom"><h3><a href="/outside/list">outside</a></h3></div>
</body></html>`

func TestScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BrowserUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(listPage))
	}))
	defer server.Close()

	s := NewScraper(server.Client(), nil)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return now }

	entries, err := s.Scrape(context.Background(), server.URL+"/stars/me/lists/stack")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	hugo := entries[0]
	assert.Equal(t, "gohugoio/hugo", hugo.FullName)
	assert.Equal(t, "https://github.com/gohugoio/hugo", hugo.URL)
	assert.Equal(t, "The world's fastest framework for building websites.", hugo.Description)
	assert.Equal(t, "Go", hugo.Language)
	assert.Equal(t, 78400, hugo.Stars)
	assert.Equal(t, 7512, hugo.Forks)
	assert.Equal(t, "2025-02-20T09:15:00Z", hugo.UpdatedAt)
	assert.Equal(t, now, hugo.FetchedAt)

	tea := entries[1]
	assert.Equal(t, "charmbracelet/bubbletea", tea.FullName)
	assert.Equal(t, "", tea.Description)
	assert.Equal(t, "", tea.Language)
	assert.Equal(t, 532, tea.Stars)
	assert.Equal(t, 0, tea.Forks)
	assert.Equal(t, "", tea.UpdatedAt)
}

func TestScraper_Scrape_NonOKStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind common.Kind
	}{
		{"not found", http.StatusNotFound, common.KindNotFound},
		{"rate limited page", http.StatusTooManyRequests, common.KindHTTPStatus},
		{"server error", http.StatusInternalServerError, common.KindHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(listPage))
			}))
			defer server.Close()

			entries, err := NewScraper(server.Client(), nil).Scrape(context.Background(), server.URL)

			assert.Empty(t, entries)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, common.KindOf(err))
			assert.Equal(t, tt.status, common.StatusOf(err))
		})
	}
}

func TestScraper_Scrape_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	entries, err := NewScraper(nil, nil).Scrape(context.Background(), url)

	assert.Empty(t, entries)
	require.Error(t, err)
	assert.Equal(t, common.KindTransport, common.KindOf(err))
}

func TestScraper_Scrape_EmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>This list is empty</p></body></html>`))
	}))
	defer server.Close()

	entries, err := NewScraper(server.Client(), nil).Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1.2k", 1200},
		{"532", 532},
		{"", 0},
		{"0", 0},
		{"1,234", 1234},
		{"  78.4K \n", 78400},
		{"2k", 2000},
		{"1.25k", 1250},
		{"n/a", 0},
		{"k", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCount(tt.in))
		})
	}
}
