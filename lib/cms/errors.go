package cms

import "errors"

// APIError is a failed CMS write. Message is safe to show to the user:
// the backend's own message when Rejected, a generic one otherwise.
type APIError struct {
	Status   int
	Message  string
	Rejected bool
	Err      error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Message returns the user-facing message of err when it is an *APIError.
func Message(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message, true
	}
	return "", false
}

type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}
