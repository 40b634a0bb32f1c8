package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is an error status returned by the server. Problem responses
// fill Title and Detail; other bodies end up in Detail verbatim.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	title := e.Title
	if title == "" {
		title = http.StatusText(e.StatusCode)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", title, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", title, e.StatusCode)
}

// IsNotFound reports whether the server answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Title == "" {
		apiErr = &APIError{Detail: strings.TrimSpace(string(body))}
	}
	apiErr.StatusCode = status
	return apiErr
}
