package domain

import "fmt"

// DefaultErrorMessage is shown when a failure carries no message of its own.
const DefaultErrorMessage = "Something went wrong"

// APIError is the error shape returned by the history service.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("error: %s", e.Message)
}

// RequestError is returned when chart data could not be retrieved.
// Message is meant to be shown to the user as is.
type RequestError struct {
	Repo    string
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch history for %q: %s: %v", e.Repo, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch history for %q: %s", e.Repo, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ExportError is returned when a chart card could not be rasterized or saved.
type ExportError struct {
	FileName string
	Message  string
	Err      error
}

func (e *ExportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("export %s: %s: %v", e.FileName, e.Message, e.Err)
	}
	return fmt.Sprintf("export %s: %s", e.FileName, e.Message)
}

func (e *ExportError) Unwrap() error { return e.Err }
