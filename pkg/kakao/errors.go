package kakao

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError is a non-2xx answer from the Kakao API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" && e.Message == "" {
		return fmt.Sprintf("kakao api: unexpected status %d", e.StatusCode)
	}

	return fmt.Sprintf("kakao api: (%d) %s: %s", e.StatusCode, e.Type, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		ErrorType string `json:"errorType"`
		Message   string `json:"message"`
		Code      int    `json:"code"`
		Msg       string `json:"msg"`
	}

	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}

	apiErr.Type = payload.ErrorType
	apiErr.Message = payload.Message
	if apiErr.Message == "" {
		apiErr.Message = payload.Msg
	}

	return apiErr
}

// isClientError reports whether err is a caller mistake rather than a sign
// of an unhealthy upstream.
func isClientError(err error) bool {
	if errors.Is(err, ErrInvalidRequest) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}

	return false
}
