package classifier

import (
	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/urlutil"
)

// Allowlist reclassifies Blocked results back to Active for domains known to
// aggressively anti-bot block while being otherwise live. This is a targeted
// recheck-pass rule, not part of the primary classification path.
type Allowlist struct {
	domains map[string]struct{}
	codes   map[int]struct{}
}

// NewAllowlist builds an Allowlist from domain and status-code lists.
func NewAllowlist(domains []string, codes []int) *Allowlist {
	a := &Allowlist{
		domains: make(map[string]struct{}, len(domains)),
		codes:   make(map[int]struct{}, len(codes)),
	}

	for _, d := range domains {
		a.domains[d] = struct{}{}
	}
	for _, c := range codes {
		a.codes[c] = struct{}{}
	}

	return a
}

// Allows reports whether a (URL, status code) pair qualifies for
// reclassification: the code is an allow-listed anti-bot code and the URL's
// host is an allow-listed domain or one of its subdomains.
func (a *Allowlist) Allows(rawURL string, code int) bool {
	if _, ok := a.codes[code]; !ok {
		return false
	}

	for d := range a.domains {
		if urlutil.MatchesDomain(rawURL, d) {
			return true
		}
	}

	return false
}

// Reclassify applies the allow-list rule to a probe result, upgrading a
// Blocked verdict to Active when the rule matches. Other verdicts pass
// through untouched.
func (a *Allowlist) Reclassify(rawURL string, result domain.ProbeResult) domain.ProbeResult {
	if result.Verdict != domain.VerdictBlocked || result.Code == nil {
		return result
	}

	if a.Allows(rawURL, *result.Code) {
		result.Verdict = domain.VerdictActive
	}

	return result
}
