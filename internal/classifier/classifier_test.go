package classifier_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkhound/internal/classifier"
	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/logger"
)

// newTestClassifier builds a Classifier with delays short enough for tests.
func newTestClassifier(t *testing.T, skipDomains ...string) *classifier.Classifier {
	t.Helper()

	cfg := classifier.Config{
		UserAgent:    "linkhound-test",
		AltUserAgent: "linkhound-test-alt",
		Timeout:      5 * time.Second,
		RetryWait:    time.Millisecond,
		SkipDomains:  skipDomains,
	}

	return classifier.New(cfg, nil, logger.NewNoOp())
}

// statusServer returns the given status for every request and counts them.
func statusServer(t *testing.T, status int, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)

	return server
}

func TestCheckActive(t *testing.T) {
	t.Parallel()

	server := statusServer(t, http.StatusOK, nil)
	c := newTestClassifier(t)

	result := c.Check(context.Background(), server.URL+"/page")

	require.NotNil(t, result.Code)
	assert.Equal(t, http.StatusOK, *result.Code)
	assert.Equal(t, domain.VerdictActive, result.Verdict)
	assert.Empty(t, result.ErrorLabel)
}

func TestCheckBrokenNotFound(t *testing.T) {
	t.Parallel()

	server := statusServer(t, http.StatusNotFound, nil)
	c := newTestClassifier(t)

	result := c.Check(context.Background(), server.URL+"/missing")

	require.NotNil(t, result.Code)
	assert.Equal(t, http.StatusNotFound, *result.Code)
	assert.Equal(t, domain.VerdictBroken, result.Verdict)
}

func TestCheckBlockedForbidden(t *testing.T) {
	t.Parallel()

	server := statusServer(t, http.StatusForbidden, nil)
	c := newTestClassifier(t)

	result := c.Check(context.Background(), server.URL+"/private")

	assert.Equal(t, domain.VerdictBlocked, result.Verdict)
}

func TestCheckBlockedVendorSentinel(t *testing.T) {
	t.Parallel()

	server := statusServer(t, 999, nil)
	c := newTestClassifier(t)

	result := c.Check(context.Background(), server.URL+"/anti-bot")

	require.NotNil(t, result.Code)
	assert.Equal(t, 999, *result.Code)
	assert.Equal(t, domain.VerdictBlocked, result.Verdict)
}

func TestCheckTransportFailure(t *testing.T) {
	t.Parallel()

	// A server that is already closed refuses connections.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	deadURL := server.URL
	server.Close()

	c := newTestClassifier(t)
	result := c.Check(context.Background(), deadURL+"/gone")

	assert.Nil(t, result.Code)
	assert.NotEmpty(t, result.ErrorLabel)
	assert.Equal(t, domain.VerdictBroken, result.Verdict)
}

func TestCheckRetryOverturnsTransientBroken(t *testing.T) {
	t.Parallel()

	// The first evaluation (HEAD + GET) sees 500; the retry sees 200.
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c := newTestClassifier(t)
	result := c.Check(context.Background(), server.URL+"/flaky")

	assert.Equal(t, domain.VerdictActive, result.Verdict)
}

func TestCheckMemoizesPerRun(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64

	server := statusServer(t, http.StatusOK, &hits)
	c := newTestClassifier(t)

	target := server.URL + "/cached"
	first := c.Check(context.Background(), target)
	after := hits.Load()
	second := c.Check(context.Background(), target)

	assert.Equal(t, first, second)
	assert.Equal(t, after, hits.Load(), "second check must not hit the network")
	assert.True(t, c.HasCached(target))
	assert.Equal(t, 1, c.ProbeCount())
}

func TestCheckSkipDomain(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, "linkedin.com")

	result := c.Check(context.Background(), "https://www.linkedin.com/in/somebody")

	assert.Nil(t, result.Code)
	assert.Equal(t, "skipped_domain", result.ErrorLabel)
	assert.Equal(t, domain.VerdictBlocked, result.Verdict)
	assert.Zero(t, c.ProbeCount(), "skip domains must not consume probe budget")
}

func TestClassifyCodeTotality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code *int
		want domain.Verdict
	}{
		{name: "nil transport failure", code: nil, want: domain.VerdictBroken},
		{name: "200", code: domain.IntPtr(200), want: domain.VerdictActive},
		{name: "204", code: domain.IntPtr(204), want: domain.VerdictActive},
		{name: "302", code: domain.IntPtr(302), want: domain.VerdictActive},
		{name: "399", code: domain.IntPtr(399), want: domain.VerdictActive},
		{name: "400", code: domain.IntPtr(400), want: domain.VerdictBroken},
		{name: "401", code: domain.IntPtr(401), want: domain.VerdictBlocked},
		{name: "403", code: domain.IntPtr(403), want: domain.VerdictBlocked},
		{name: "404", code: domain.IntPtr(404), want: domain.VerdictBroken},
		{name: "410", code: domain.IntPtr(410), want: domain.VerdictBroken},
		{name: "418", code: domain.IntPtr(418), want: domain.VerdictBroken},
		{name: "429", code: domain.IntPtr(429), want: domain.VerdictBlocked},
		{name: "500", code: domain.IntPtr(500), want: domain.VerdictBroken},
		{name: "503", code: domain.IntPtr(503), want: domain.VerdictBroken},
		{name: "999", code: domain.IntPtr(999), want: domain.VerdictBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, classifier.ClassifyCode(tt.code))
		})
	}
}

func TestAllowlistReclassify(t *testing.T) {
	t.Parallel()

	allow := classifier.NewAllowlist([]string{"linkedin.com"}, []int{403, 999})

	blocked := domain.ProbeResult{Code: domain.IntPtr(999), Verdict: domain.VerdictBlocked}
	got := allow.Reclassify("https://www.linkedin.com/company/x", blocked)
	assert.Equal(t, domain.VerdictActive, got.Verdict)

	// Non-allow-listed domain stays Blocked.
	got = allow.Reclassify("https://example.com/x", blocked)
	assert.Equal(t, domain.VerdictBlocked, got.Verdict)

	// Broken never gets upgraded.
	broken := domain.ProbeResult{Code: domain.IntPtr(404), Verdict: domain.VerdictBroken}
	got = allow.Reclassify("https://www.linkedin.com/x", broken)
	assert.Equal(t, domain.VerdictBroken, got.Verdict)

	// Transport failures carry no code and never qualify.
	noCode := domain.ProbeResult{Verdict: domain.VerdictBlocked, ErrorLabel: "skipped_domain"}
	got = allow.Reclassify("https://www.linkedin.com/x", noCode)
	assert.Equal(t, domain.VerdictBlocked, got.Verdict)
}
