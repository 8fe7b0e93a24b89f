// Package enrichment implements the shoe details endpoint (POST /shoes) and
// the client the Sync Layer uses to call it.
package enrichment

import (
	"errors"
	"fmt"

	"github.com/mmynk/shoeshelf/internal/models"
)

// Path is where the endpoint is mounted.
const Path = "/shoes"

// ErrMalformedResponse is returned when the endpoint answers with neither
// details nor an error message.
var ErrMalformedResponse = errors.New("malformed enrichment response")

// Request is the body of POST /shoes.
type Request struct {
	Shoes  []models.Item `json:"shoes"`
	UserID string        `json:"userId"`
}

// Response is either {details} or {error}.
type Response struct {
	Details string `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServiceError carries the message the endpoint reported.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("enrichment service: %s (status %d)", e.Message, e.StatusCode)
}
