package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/linkhound/internal/domain"
	"github.com/jonesrussell/linkhound/internal/logger"
	"github.com/jonesrussell/linkhound/internal/urlutil"
)

// DefaultOracleEndpoint is the hosted-document provider's public-metadata
// endpoint. Hosted pages answer 200 for both public and access-restricted
// content, so the GET status alone is never trusted for them.
const DefaultOracleEndpoint = "https://www.notion.so/api/v3/getPublicPageData"

// hostedDocumentSuffixes identify URLs served by the hosted-document provider.
var hostedDocumentSuffixes = []string{
	"notion.site",
	"notion.so",
}

// Oracle error labels.
const (
	labelNotPublic    = "not_public"
	labelNoDocumentID = "no_document_id"
	labelOracleError  = "oracle_inconclusive"
	labelDocNotFound  = "document_not_found"
)

// hexIDPattern matches the 32-hex-character document identifier embedded in
// hosted page URLs, usually as the tail of the last path segment.
var hexIDPattern = regexp.MustCompile(`[0-9a-fA-F]{32}`)

// IsHostedDocument reports whether the URL belongs to the hosted-document
// provider and therefore needs the oracle lookup.
func IsHostedDocument(rawURL string) bool {
	host := urlutil.Domain(rawURL)

	for _, suffix := range hostedDocumentSuffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}

	return false
}

// publicPageData is the subset of the oracle response we interpret.
type publicPageData struct {
	PublicAccessRole *string `json:"publicAccessRole"`
}

// Oracle resolves the true access state of hosted-document URLs through the
// provider's public-metadata endpoint.
type Oracle struct {
	client   *http.Client
	endpoint string
	log      logger.Interface
}

// NewOracle creates an Oracle. An empty endpoint selects the default.
func NewOracle(endpoint string, timeout time.Duration, log logger.Interface) *Oracle {
	if endpoint == "" {
		endpoint = DefaultOracleEndpoint
	}

	return &Oracle{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		log:      log.WithComponent("oracle"),
	}
}

// Resolve interprets the oracle's answer for a hosted-document URL whose GET
// probe returned getCode. Explicit public access trusts the GET status;
// everything else forces an auth-required or not-found code. An inconclusive
// oracle answer must never let the URL classify as Active, because the base
// GET status is not trustworthy for this provider.
func (o *Oracle) Resolve(ctx context.Context, rawURL string, getCode *int) (*int, string) {
	docID, ok := extractDocumentID(rawURL)
	if !ok {
		return domain.IntPtr(statusUnauthorized), labelNoDocumentID
	}

	payload, err := json.Marshal(map[string]string{"blockId": docID})
	if err != nil {
		return domain.IntPtr(statusUnauthorized), labelOracleError
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.IntPtr(statusUnauthorized), labelOracleError
	}
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := o.client.Do(req)
	if doErr != nil {
		o.log.Debug("oracle request failed", "url", rawURL, "error", doErr.Error())
		return domain.IntPtr(statusUnauthorized), labelOracleError
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == statusNotFound:
		return domain.IntPtr(statusNotFound), labelDocNotFound
	case resp.StatusCode != http.StatusOK:
		return domain.IntPtr(statusUnauthorized), labelOracleError
	}

	var data publicPageData
	if decodeErr := json.NewDecoder(resp.Body).Decode(&data); decodeErr != nil {
		return domain.IntPtr(statusUnauthorized), labelOracleError
	}

	if data.PublicAccessRole == nil || *data.PublicAccessRole == "" || *data.PublicAccessRole == "none" {
		return domain.IntPtr(statusUnauthorized), labelNotPublic
	}

	// Explicit public access: the GET status stands.
	return getCode, ""
}

// extractDocumentID pulls the 32-hex document identifier out of a hosted page
// URL and reformats it into the canonical dashed form the oracle expects.
func extractDocumentID(rawURL string) (string, bool) {
	match := hexIDPattern.FindString(rawURL)
	if match == "" {
		return "", false
	}

	id, err := uuid.Parse(match)
	if err != nil {
		return "", false
	}

	return id.String(), true
}
