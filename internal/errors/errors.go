package errors

// ErrorResponse is the standardized error body for API failures.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RegistrationResponse is the envelope returned by the registration endpoint
// for both outcomes. Details carries the caught error's message on failure;
// raw store error codes are never exposed beyond that.
type RegistrationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}
