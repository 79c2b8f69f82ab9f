package models

import (
	"fmt"
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
		Entries int       `json:"cache_entries" doc:"Devices currently held in the suggestion cache"`
	}
}

// TextResponse is a plain text or verbatim document response
type TextResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// NewTextResponse wraps a human-readable body
func NewTextResponse(body string) *TextResponse {
	return &TextResponse{ContentType: "text/plain; charset=utf-8", Body: []byte(body)}
}

// UsageRequest has no inputs
type UsageRequest struct{}

// IndexRequest has no inputs
type IndexRequest struct{}

// SuggestionRequest looks up the cached suggestion for a device
type SuggestionRequest struct {
	SSID string `path:"ssid" doc:"Network name"`
	MAC  string `path:"mac" doc:"Hardware address of the access point"`
}

// SuggestionRawBody is the machine-readable lookup result
type SuggestionRawBody struct {
	SSID       string     `json:"ssid" doc:"Network name"`
	MAC        string     `json:"mac" doc:"Hardware address of the access point"`
	Suggestion Suggestion `json:"suggestion" doc:"Channel advice"`
}

// SuggestionRawResponse wraps SuggestionRawBody
type SuggestionRawResponse struct {
	Body SuggestionRawBody
}

// GetReadingRequest identifies a stored reading
type GetReadingRequest struct {
	ID string `path:"id" doc:"Reading ID"`
}

// ReadingSuggestionRequest looks a device up inside one stored reading
type ReadingSuggestionRequest struct {
	ID   string `path:"id" doc:"Reading ID"`
	SSID string `path:"ssid" doc:"Network name"`
	MAC  string `path:"mac" doc:"Hardware address of the access point"`
}

// UploadReadingRequest carries a reading document as sent by a scanner
type UploadReadingRequest struct {
	RawBody []byte
}

// UploadReadingResponseBody is the body of the upload response
type UploadReadingResponseBody struct {
	ID  string `json:"id" doc:"Reading unique identifier"`
	URL string `json:"url" doc:"Where the stored reading can be retrieved"`
}

// UploadReadingResponse represents the response from storing a reading
type UploadReadingResponse struct {
	Body UploadReadingResponseBody
}

// ValidateReadingID accepts ASCII letters, digits and '-' only, so an ID can
// never escape the storage directory.
func ValidateReadingID(id string) error {
	if id == "" {
		return fmt.Errorf("empty reading id")
	}
	for _, c := range id {
		if !(c == '-' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return fmt.Errorf("invalid reading id %q", id)
		}
	}
	return nil
}
