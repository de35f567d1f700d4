package client

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// Sentinel errors matched with errors.Is against an *APIError.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// maxBodyInError caps how much of an undecodable body ends up in Error().
const maxBodyInError = 200

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	// Detail is the server-supplied message, empty when the body had none.
	Detail string
	Body   []byte
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Detail:     extractDetail(body),
		Body:       body,
	}
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	body := string(e.Body)
	if len(body) > maxBodyInError {
		cut := maxBodyInError - 3
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), body)
}

// Is matches the status-based sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// extractDetail pulls the human-readable message out of a FastAPI error body.
// Handled shapes:
//
//	{"detail": "Entity with id 3 not found"}
//	{"detail": [{"loc": [...], "msg": "field required", "type": "..."}]}
//	{"detail": {"status": "not ready", ...}}
//	{"message": "..."}
func extractDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}

	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		return detail.String()
	case detail.IsArray():
		if msg := detail.Get("0.msg"); msg.Exists() {
			return msg.String()
		}
	case detail.IsObject():
		return detail.Raw
	}

	if msg := gjson.GetBytes(body, "message"); msg.Type == gjson.String {
		return msg.String()
	}
	return ""
}
