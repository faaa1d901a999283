package models

// ErrorResponse is the body of every failed request, including those the
// session filter rejects.
type ErrorResponse struct {
	Error       string `json:"error"`
	RawResponse string `json:"raw_response,omitempty"`
}
