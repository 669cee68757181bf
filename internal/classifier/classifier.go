// Package classifier probes URLs and produces a tri-state reachability
// verdict. Probes are ordered cheapest first: a redirect-following HEAD, then
// a header-only GET, then (for hosted-document providers whose responses are
// not self-describing) a secondary oracle lookup. Broken verdicts are
// re-probed once with an alternate user agent before being accepted.
package classifier

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/logger"
	"github.com/jonesrussell/linkhound/internal/urlutil"
)

// Status codes with special classification behavior.
const (
	statusUnauthorized    = 401
	statusForbidden       = 403
	statusNotFound        = 404
	statusGone            = 410
	statusTooManyRequests = 429
	// statusBotSentinel is a vendor-specific "request denied" code returned
	// by some anti-bot frontends instead of a standard 4xx.
	statusBotSentinel = 999
)

// Error labels recorded on transport failures.
const (
	labelTimeout       = "timeout"
	labelDNSError      = "dns_error"
	labelConnectError  = "connect_error"
	labelRequestError  = "request_error"
	labelSkippedDomain = "skipped_domain"
)

// defaultAltUserAgent is the browser-like agent used for the second probe of
// a Broken result; naive bot blocking often keys on the first agent string.
const defaultAltUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// defaultRetryWait is the pause before re-probing a Broken result.
const defaultRetryWait = 800 * time.Millisecond

// Config configures a Classifier.
type Config struct {
	UserAgent    string
	AltUserAgent string
	Timeout      time.Duration
	// ProbeDelay is slept after every network probe for politeness. Cache
	// hits do not sleep.
	ProbeDelay time.Duration
	// RetryWait is the pause before the alternate-agent re-probe.
	RetryWait time.Duration
	// SkipDomains are short-circuited to Blocked without any network call.
	SkipDomains []string
}

// Classifier probes URLs and memoizes results for the remainder of a run.
// It is used by a single goroutine; results are never reused across runs
// because liveness can change.
type Classifier struct {
	client       *http.Client
	oracle       *Oracle
	log          logger.Interface
	userAgent    string
	altUserAgent string
	probeDelay   time.Duration
	retryWait    time.Duration
	skipDomains  []string
	cache        map[string]domain.ProbeResult
	probes       int
}

// New creates a Classifier. The oracle may be nil to disable hosted-document
// provider lookups.
func New(cfg Config, oracle *Oracle, log logger.Interface) *Classifier {
	if cfg.AltUserAgent == "" {
		cfg.AltUserAgent = defaultAltUserAgent
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = defaultRetryWait
	}

	return &Classifier{
		client:       &http.Client{Timeout: cfg.Timeout},
		oracle:       oracle,
		log:          log.WithComponent("classifier"),
		userAgent:    cfg.UserAgent,
		altUserAgent: cfg.AltUserAgent,
		probeDelay:   cfg.ProbeDelay,
		retryWait:    cfg.RetryWait,
		skipDomains:  cfg.SkipDomains,
		cache:        make(map[string]domain.ProbeResult),
	}
}

// Check classifies the given URL, consulting the per-run cache first. The URL
// must already be normalized; all cache keys are derived by the caller
// through urlutil.Normalize.
func (c *Classifier) Check(ctx context.Context, rawURL string) domain.ProbeResult {
	if cached, ok := c.cache[rawURL]; ok {
		return cached
	}

	result := c.checkFresh(ctx, rawURL)
	c.cache[rawURL] = result

	return result
}

// HasCached reports whether a result for the URL is already memoized, i.e.
// whether a Check would not consume probe budget.
func (c *Classifier) HasCached(rawURL string) bool {
	_, ok := c.cache[rawURL]
	return ok
}

// ProbeCount returns the number of distinct URLs probed so far this run.
func (c *Classifier) ProbeCount() int {
	return c.probes
}

// checkFresh performs the full classification for a URL not yet in the cache.
func (c *Classifier) checkFresh(ctx context.Context, rawURL string) domain.ProbeResult {
	for _, d := range c.skipDomains {
		if urlutil.MatchesDomain(rawURL, d) {
			return domain.ProbeResult{ErrorLabel: labelSkippedDomain, Verdict: domain.VerdictBlocked}
		}
	}

	c.probes++

	result := c.evaluate(ctx, rawURL, c.userAgent)
	if result.Verdict != domain.VerdictBroken {
		return result
	}

	// A Broken verdict gets one more chance with an alternate agent; this
	// suppresses transient errors and naive bot blocking. The retry re-runs
	// the oracle-aware path for hosted-document URLs.
	if !sleepCtx(ctx, c.retryWait) {
		return result
	}

	retry := c.evaluate(ctx, rawURL, c.altUserAgent)
	if retry.Verdict != domain.VerdictBroken {
		c.log.Debug("retry overturned broken verdict",
			"url", rawURL,
			"verdict", string(retry.Verdict),
		)
		return retry
	}

	return result
}

// evaluate runs one probe pass (HEAD, GET, oracle) and maps the outcome to a
// verdict.
func (c *Classifier) evaluate(ctx context.Context, rawURL, userAgent string) domain.ProbeResult {
	code, label := c.probe(ctx, rawURL, userAgent)

	if c.oracle != nil && code != nil && IsHostedDocument(rawURL) {
		code, label = c.oracle.Resolve(ctx, rawURL, code)
	}

	return domain.ProbeResult{
		Code:       code,
		ErrorLabel: label,
		Verdict:    ClassifyCode(code),
	}
}

// probe issues the HEAD-then-GET sequence and returns the final status code,
// or nil plus an error label when both attempts fail at the transport layer.
func (c *Classifier) probe(ctx context.Context, rawURL, userAgent string) (*int, string) {
	headCode, headErr := c.request(ctx, http.MethodHead, rawURL, userAgent)
	if headErr == nil && isConfident(*headCode) {
		return headCode, ""
	}

	getCode, getErr := c.request(ctx, http.MethodGet, rawURL, userAgent)
	if getErr == nil {
		return getCode, ""
	}

	// GET failed but HEAD produced a code; the HEAD answer is all we have.
	if headErr == nil {
		return headCode, ""
	}

	return nil, errorLabel(headErr)
}

// request performs a single probe. GET responses are closed without reading
// the body; only the status line matters.
func (c *Classifier) request(ctx context.Context, method, rawURL, userAgent string) (*int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, doErr := c.client.Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer resp.Body.Close()

	c.pause(ctx)

	return domain.IntPtr(resp.StatusCode), nil
}

// pause sleeps the configured probe delay.
func (c *Classifier) pause(ctx context.Context) {
	if c.probeDelay > 0 {
		sleepCtx(ctx, c.probeDelay)
	}
}

// isConfident reports whether a status code is trustworthy regardless of
// probe type: hard negatives and auth/rate-limit classes mean the same thing
// for HEAD as for GET.
func isConfident(code int) bool {
	switch code {
	case statusNotFound, statusGone, statusUnauthorized, statusForbidden, statusTooManyRequests, statusBotSentinel:
		return true
	default:
		return false
	}
}

// ClassifyCode maps a final status code to a verdict. A nil code means
// transport failure. The mapping is total: every input produces exactly one
// of the three verdicts.
func ClassifyCode(code *int) domain.Verdict {
	if code == nil {
		return domain.VerdictBroken
	}

	c := *code

	switch {
	case c >= 200 && c < 400:
		return domain.VerdictActive
	case c == statusNotFound || c == statusGone:
		return domain.VerdictBroken
	case c == statusUnauthorized || c == statusForbidden || c == statusTooManyRequests || c == statusBotSentinel:
		return domain.VerdictBlocked
	default:
		return domain.VerdictBroken
	}
}

// errorLabel reduces a transport error to a short diagnostic tag.
func errorLabel(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return labelDNSError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return labelTimeout
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return labelTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return labelConnectError
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return labelTimeout
	}

	return labelRequestError
}

// sleepCtx sleeps for d or until the context is cancelled. Returns false when
// cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
