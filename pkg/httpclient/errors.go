package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

// upstreamError covers the error bodies of the APIs we call: Stripe nests
// {"error": {"code", "message"}} while Resend returns {"name", "message"}.
type upstreamError struct {
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes a non-2xx response body and maps it
// to an AppError tagged with the upstream name.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", upstream, resp.StatusCode, err)
	}

	code, message := "", string(body)
	var parsed upstreamError
	if json.Unmarshal(body, &parsed) == nil {
		switch {
		case parsed.Error != nil:
			code, message = parsed.Error.Code, parsed.Error.Message
			if code == "" {
				code = parsed.Error.Type
			}
		case parsed.Message != "":
			code, message = parsed.Name, parsed.Message
		}
	}
	return mapUpstreamError(resp.StatusCode, code, message, upstream)
}

func mapUpstreamError(status int, code, message, upstream string) error {
	msg := fmt.Sprintf("%s: %s", upstream, message)

	switch {
	case status == http.StatusPaymentRequired:
		return apperrors.PaymentFailed(message)
	case status == http.StatusNotFound:
		return apperrors.NotFound(upstream + " resource")
	case status == http.StatusTooManyRequests:
		return apperrors.RateLimited(msg)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		// Our credentials were rejected; callers see a server fault.
		return fmt.Errorf("%s rejected credentials (%d/%s): %s", upstream, status, code, message)
	case status >= 400 && status < 500:
		return apperrors.InvalidInput(msg)
	default:
		return apperrors.Unavailable(msg)
	}
}
