package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/apscanner/internal/api/handlers"
	"github.com/RMahshie/apscanner/internal/processing"
)

// MaxReadingBytes caps the size of an uploaded reading
const MaxReadingBytes = 128 * 1024

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, svc processing.ReadingService, publicURL string) {
	h := handlers.NewReadingHandler(svc, publicURL)

	huma.Register(api, huma.Operation{
		OperationID: "usage",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Usage",
		Description: "Describes the available routes",
		Tags:        []string{"Usage"},
	}, h.Usage)

	huma.Register(api, huma.Operation{
		OperationID:  "uploadReading",
		Method:       http.MethodPost,
		Path:         "/",
		Summary:      "Upload a reading",
		Description:  "Validates and stores a reading, then feeds its suggestions to the cache",
		Tags:         []string{"Readings"},
		MaxBodyBytes: MaxReadingBytes,
	}, h.Upload)

	huma.Register(api, huma.Operation{
		OperationID: "listReadings",
		Method:      http.MethodGet,
		Path:        "/index",
		Summary:     "List readings",
		Description: "Returns the URL of every stored reading",
		Tags:        []string{"Readings"},
	}, h.Index)

	huma.Register(api, huma.Operation{
		OperationID: "getSuggestion",
		Method:      http.MethodGet,
		Path:        "/suggestion/{ssid}/{mac}",
		Summary:     "Get the latest suggestion",
		Description: "Returns the most recent suggestion for a device in human-readable form",
		Tags:        []string{"Suggestions"},
	}, h.Suggestion)

	huma.Register(api, huma.Operation{
		OperationID: "getSuggestionRaw",
		Method:      http.MethodGet,
		Path:        "/suggestion/{ssid}/{mac}/raw",
		Summary:     "Get the latest suggestion as JSON",
		Description: "Returns the most recent suggestion for a device",
		Tags:        []string{"Suggestions"},
	}, h.SuggestionRaw)

	huma.Register(api, huma.Operation{
		OperationID: "getReading",
		Method:      http.MethodGet,
		Path:        "/{id}",
		Summary:     "Get a reading",
		Description: "Returns a stored reading exactly as it was uploaded",
		Tags:        []string{"Readings"},
	}, h.Serve)

	huma.Register(api, huma.Operation{
		OperationID: "getReadingSuggestion",
		Method:      http.MethodGet,
		Path:        "/{id}/{ssid}/{mac}",
		Summary:     "Get a suggestion from a reading",
		Description: "Returns the suggestion a stored reading holds for a device in human-readable form",
		Tags:        []string{"Readings"},
	}, h.ReadingSuggestion)

	huma.Register(api, huma.Operation{
		OperationID: "getReadingSuggestionRaw",
		Method:      http.MethodGet,
		Path:        "/{id}/{ssid}/{mac}/raw",
		Summary:     "Get a suggestion from a reading as JSON",
		Description: "Returns the suggestion a stored reading holds for a device",
		Tags:        []string{"Readings"},
	}, h.ReadingSuggestionRaw)
}
