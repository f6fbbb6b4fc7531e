package upstream

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"igdm/internal/errs"
)

// classify maps an upstream response to the failure taxonomy. Returns nil
// when the response is a success envelope.
func classify(statusCode int, body []byte, header http.Header) error {
	var env rawEnvelope
	parseable := json.Unmarshal(body, &env) == nil

	if parseable && env.Challenge != nil {
		return errs.New(errs.KindChallenge, "verification required: approve the login in the provider app, then retry")
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		e := errs.New(errs.KindRateLimited, "upstream is throttling requests")
		e.RetryAfter = retryAfter(header)
		return e
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		if parseable && env.Message == "bad_password" {
			return errs.New(errs.KindAuthRequired, "invalid credentials")
		}
		return errs.New(errs.KindAuthRequired, "upstream session is no longer valid")
	case statusCode == http.StatusNotFound:
		return errs.New(errs.KindNotFound, "not found")
	case statusCode >= 500:
		return errs.Newf(errs.KindTransient, "upstream returned %d", statusCode)
	}

	if !parseable {
		return errs.New(errs.KindFatal, "unrecognized upstream response")
	}
	if env.Status == "ok" {
		return nil
	}

	switch env.Message {
	case "login_required":
		return errs.New(errs.KindAuthRequired, "upstream session is no longer valid")
	case "bad_password", "invalid_user":
		return errs.New(errs.KindAuthRequired, "invalid credentials")
	case "challenge_required":
		return errs.New(errs.KindChallenge, "verification required: approve the login in the provider app, then retry")
	case "two_factor_required":
		return errs.New(errs.KindChallenge, "two-factor authentication required; not supported here")
	case "rate_limited", "please_wait":
		e := errs.New(errs.KindRateLimited, "upstream is throttling requests")
		e.RetryAfter = retryAfter(header)
		return e
	case "not_found":
		return errs.New(errs.KindNotFound, "not found")
	}

	if statusCode >= 200 && statusCode < 300 && env.Status == "" {
		// 2xx but not the envelope we know.
		return errs.New(errs.KindFatal, "unrecognized upstream response")
	}
	return errs.Newf(errs.KindFatal, "upstream request failed: %s", env.Message)
}

func retryAfter(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
