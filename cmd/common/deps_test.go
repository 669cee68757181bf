package common_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/linkhound/cmd/common"
	"github.com/jonesrussell/linkhound/internal/classifier"
	"github.com/jonesrussell/linkhound/internal/config"
	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/logger"
)

func TestRecheckCheckerProbesSkipListedDomains(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	host := parsed.Host

	cfg := &config.Config{Crawl: config.CrawlConfig{
		UserAgent:    "test-agent",
		ProbeTimeout: 5 * time.Second,
		SkipDomains:  []string{host},
	}}

	// The crawl classifier short-circuits the domain without probing, so its
	// result carries no status code.
	crawlChecker := common.NewChecker(cfg, logger.NewNoOp())
	blocked := crawlChecker.Check(context.Background(), server.URL)
	assert.Equal(t, domain.VerdictBlocked, blocked.Verdict)
	assert.Nil(t, blocked.Code)
	assert.Zero(t, crawlChecker.ProbeCount())

	// The recheck classifier probes it anyway, giving the allow list a real
	// code to promote.
	allowlist := classifier.NewAllowlist([]string{host}, []int{http.StatusForbidden})
	recheckChecker := common.NewRecheckChecker(cfg, logger.NewNoOp())
	result := allowlist.Reclassify(server.URL, recheckChecker.Check(context.Background(), server.URL))

	require.NotNil(t, result.Code)
	assert.Equal(t, http.StatusForbidden, *result.Code)
	assert.Equal(t, domain.VerdictActive, result.Verdict)
}
