package client

import "fmt"

// Payload is a decoded operation result. Keys match the tool payloads
// returned by the server.
type Payload map[string]any

// Todo is a record sent to Write. Empty fields are filled in by the server.
type Todo struct {
	ID       string `json:"id,omitempty"`
	Content  string `json:"content"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// AddRequest appends a single todo.
type AddRequest struct {
	Content  string `json:"content"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
	ID       string `json:"id,omitempty"`
}

// ReadQuery holds the optional filters of Read.
type ReadQuery struct {
	Status       string
	Priority     string
	IncludeStats bool
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}
