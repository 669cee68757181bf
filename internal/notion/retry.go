package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// APIError is a non-2xx response from the record store.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// apiErrorBody is the error envelope the record store returns.
type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{Status: status}

	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}

	return apiErr
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("record store api error %d (%s): %s", e.Status, e.Code, e.Message)
	}

	return fmt.Sprintf("record store api error %d", e.Status)
}

// Retryable reports whether the failure is worth retrying: rate limiting and
// server-side errors are, client errors are not.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// permanent marks an error as not retryable for the backoff layer.
func permanent(err error) error {
	return backoff.Permanent(err)
}

// retryCall runs the operation with exponential backoff, honouring context
// cancellation, up to maxRetries retries beyond the first attempt.
func retryCall(ctx context.Context, maxRetries int, operation func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 15 * time.Second

	wrapped := backoff.WithMaxRetries(backoff.WithContext(policy, ctx), uint64(maxRetries))

	return backoff.Retry(operation, wrapped)
}
