package render_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/render"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Marble - Community - Marble</title></head>
<body>
<header><a href="/home">Home</a></header>
<nav><a href="/docs">Docs</a></nav>
<main>
  <p>Read our <a href="https://other.com/report">latest report</a> for details.</p>
  <p><a href="/about">About us</a></p>
</main>
<footer><a href="/privacy">Privacy</a></footer>
</body>
</html>`

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func newTestRenderer(t *testing.T) *render.HTTPRenderer {
	t.Helper()

	return render.NewHTTPRenderer(render.HTTPRendererConfig{
		UserAgent: "linkhound-test",
		Timeout:   5 * time.Second,
		SiteBrand: "Marble",
	})
}

func TestNavigateExtractsAnchors(t *testing.T) {
	t.Parallel()

	server := serveHTML(t, samplePage)
	r := newTestRenderer(t)

	page, err := r.Navigate(context.Background(), server.URL)
	require.NoError(t, err)

	require.Len(t, page.Anchors, 5)

	byHref := make(map[string]render.Anchor, len(page.Anchors))
	for _, a := range page.Anchors {
		byHref[a.Href] = a
	}

	assert.Equal(t, domain.AreaHeader, byHref["/home"].Area)
	assert.Equal(t, domain.AreaNav, byHref["/docs"].Area)
	assert.Equal(t, domain.AreaFooter, byHref["/privacy"].Area)
	assert.Equal(t, domain.AreaMain, byHref["/about"].Area)

	report := byHref["https://other.com/report"]
	assert.Equal(t, domain.AreaMain, report.Area)
	assert.Equal(t, "latest report", report.Text)
	assert.Contains(t, report.Snippet, "Read our latest report")
	assert.Equal(t, `a[href="https://other.com/report"]`, report.Locator)
}

func TestNavigateCleansTitle(t *testing.T) {
	t.Parallel()

	server := serveHTML(t, samplePage)
	r := newTestRenderer(t)

	page, err := r.Navigate(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Community", page.Title)
}

func TestNavigateFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	r := newTestRenderer(t)

	_, err := r.Navigate(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestNavigateUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	deadURL := server.URL
	server.Close()

	r := newTestRenderer(t)

	_, err := r.Navigate(context.Background(), deadURL)
	assert.Error(t, err)
}

func TestNavigateFallsBackToURLTitle(t *testing.T) {
	t.Parallel()

	server := serveHTML(t, `<html><body><a href="/x">x</a></body></html>`)
	r := newTestRenderer(t)

	page, err := r.Navigate(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL, page.Title)
}

func TestSnippetCapped(t *testing.T) {
	t.Parallel()

	long := `<html><body><p>`
	for range 40 {
		long += "surrounding context words "
	}
	long += `<a href="/target">link</a></p></body></html>`

	server := serveHTML(t, long)
	r := newTestRenderer(t)

	page, err := r.Navigate(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, page.Anchors, 1)

	assert.LessOrEqual(t, len(page.Anchors[0].Snippet), 180)
}

func TestSnippetCapHonorsRuneBoundaries(t *testing.T) {
	t.Parallel()

	long := `<html><body><p>` + strings.Repeat("é", 300) +
		` <a href="/target">link</a></p></body></html>`

	server := serveHTML(t, long)
	r := newTestRenderer(t)

	page, err := r.Navigate(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, page.Anchors, 1)

	snippet := page.Anchors[0].Snippet
	assert.True(t, utf8.ValidString(snippet))
	assert.LessOrEqual(t, utf8.RuneCountInString(snippet), 180)
	assert.True(t, strings.HasSuffix(snippet, "..."))
}
