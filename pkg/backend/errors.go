package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload marks a 2xx response whose body broke the expected contract.
var ErrInvalidPayload = errors.New("backend returned an invalid payload")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Verb       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if body := strings.TrimSpace(e.Body); body != "" {
		return body
	}
	return fmt.Sprintf("%s failed: %d", e.Verb, e.StatusCode)
}

// Message returns a display string, unwrapping FastAPI's {"detail": ...} envelope.
func (e *StatusError) Message() string {
	body := strings.TrimSpace(e.Body)
	if strings.HasPrefix(body, "{") {
		var envelope struct {
			Detail json.RawMessage `json:"detail"`
		}
		if err := json.Unmarshal([]byte(body), &envelope); err == nil && len(envelope.Detail) > 0 {
			var detail string
			if err := json.Unmarshal(envelope.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
				return strings.TrimSpace(detail)
			}
			// validation errors come back as a list of objects
			var items []struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
				return items[0].Msg
			}
		}
	}
	return e.Error()
}

// IsStatus reports whether err is a StatusError carrying code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// ErrorMessage returns the text a page should show for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message()
	}
	return err.Error()
}
