package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/apscanner/internal/processing"
	"github.com/RMahshie/apscanner/pkg/models"
)

const usage = `Usage

    GET /index
        - Lists every stored reading.

    GET /<reading_id>
        - Retrieves a stored reading exactly as it was uploaded.

    GET /<reading_id>/<ssid>/<mac>[/raw]
        - Retrieves the suggestion a stored reading holds for the given ssid/mac device.

    GET /suggestion/<ssid>/<mac>[/raw]
        - Retrieves the latest suggestion available to the given ssid/mac device.

    POST /
        - Accepts a reading as JSON in the request body and responds with the URL of the stored file.
`

// ReadingHandler handles reading and suggestion HTTP requests
type ReadingHandler struct {
	svc       processing.ReadingService
	publicURL string
}

// NewReadingHandler creates a new reading handler. publicURL prefixes the
// links handed back to clients.
func NewReadingHandler(svc processing.ReadingService, publicURL string) *ReadingHandler {
	return &ReadingHandler{
		svc:       svc,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (h *ReadingHandler) readingURL(id string) string {
	return h.publicURL + "/" + id
}

// Usage describes the available routes
func (h *ReadingHandler) Usage(_ context.Context, _ *models.UsageRequest) (*models.TextResponse, error) {
	return models.NewTextResponse(usage), nil
}

// Index lists the URL of every stored reading
func (h *ReadingHandler) Index(ctx context.Context, _ *models.IndexRequest) (*models.TextResponse, error) {
	ids, err := h.svc.Index(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list readings", err)
	}

	var b strings.Builder
	b.WriteString("AP Scanner Index\n")
	fmt.Fprintf(&b, "There's currently %d scans available.\n\nScans\n", len(ids))
	for _, id := range ids {
		b.WriteString(h.readingURL(id))
		b.WriteByte('\n')
	}
	return models.NewTextResponse(b.String()), nil
}

// Suggestion answers a device lookup from the cache in human-readable form
func (h *ReadingHandler) Suggestion(ctx context.Context, req *models.SuggestionRequest) (*models.TextResponse, error) {
	s, err := h.svc.Lookup(ctx, req.SSID, req.MAC)
	if err != nil {
		return nil, toHTTPError(err, "No suggestion available")
	}
	return models.NewTextResponse(suggestionText(req.SSID, req.MAC, s)), nil
}

// SuggestionRaw answers a device lookup from the cache as JSON
func (h *ReadingHandler) SuggestionRaw(ctx context.Context, req *models.SuggestionRequest) (*models.SuggestionRawResponse, error) {
	s, err := h.svc.Lookup(ctx, req.SSID, req.MAC)
	if err != nil {
		return nil, toHTTPError(err, "No suggestion available")
	}
	return &models.SuggestionRawResponse{
		Body: models.SuggestionRawBody{SSID: req.SSID, MAC: req.MAC, Suggestion: s},
	}, nil
}

// Serve returns a stored reading verbatim
func (h *ReadingHandler) Serve(ctx context.Context, req *models.GetReadingRequest) (*models.TextResponse, error) {
	if err := models.ValidateReadingID(req.ID); err != nil {
		return nil, huma.Error400BadRequest("Invalid reading ID", err)
	}
	data, err := h.svc.Raw(ctx, req.ID)
	if err != nil {
		return nil, toHTTPError(err, "Reading not found")
	}
	return &models.TextResponse{ContentType: "application/json", Body: data}, nil
}

// ReadingSuggestion answers a device lookup from one stored reading
func (h *ReadingHandler) ReadingSuggestion(ctx context.Context, req *models.ReadingSuggestionRequest) (*models.TextResponse, error) {
	s, err := h.findInReading(ctx, req)
	if err != nil {
		return nil, err
	}
	return models.NewTextResponse(suggestionText(req.SSID, req.MAC, s)), nil
}

// ReadingSuggestionRaw is ReadingSuggestion as JSON
func (h *ReadingHandler) ReadingSuggestionRaw(ctx context.Context, req *models.ReadingSuggestionRequest) (*models.SuggestionRawResponse, error) {
	s, err := h.findInReading(ctx, req)
	if err != nil {
		return nil, err
	}
	return &models.SuggestionRawResponse{
		Body: models.SuggestionRawBody{SSID: req.SSID, MAC: req.MAC, Suggestion: s},
	}, nil
}

func (h *ReadingHandler) findInReading(ctx context.Context, req *models.ReadingSuggestionRequest) (models.Suggestion, error) {
	if err := models.ValidateReadingID(req.ID); err != nil {
		return models.Suggestion{}, huma.Error400BadRequest("Invalid reading ID", err)
	}
	s, err := h.svc.FindInReading(ctx, req.ID, req.SSID, req.MAC)
	if err != nil {
		return models.Suggestion{}, toHTTPError(err, "No suggestion available")
	}
	return s, nil
}

// Upload stores a reading and returns where it can be fetched
func (h *ReadingHandler) Upload(ctx context.Context, req *models.UploadReadingRequest) (*models.UploadReadingResponse, error) {
	id, err := h.svc.Upload(ctx, req.RawBody)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(req.RawBody)).Msg("Reading upload rejected")
		return nil, toHTTPError(err, "Failed to store reading")
	}

	log.Info().Str("reading_id", id).Msg("Reading uploaded")
	return &models.UploadReadingResponse{
		Body: models.UploadReadingResponseBody{ID: id, URL: h.readingURL(id)},
	}, nil
}

func suggestionText(ssid, mac string, s models.Suggestion) string {
	return fmt.Sprintf("AP Scanner Suggestion\nSSID: %s\nMAC: %s\nSuggestion: %s\n", ssid, mac, s)
}

func toHTTPError(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, processing.ErrNotFound):
		return huma.Error404NotFound(notFoundMsg, err)
	case errors.Is(err, processing.ErrInvalidReading):
		return huma.Error400BadRequest("Invalid reading", err)
	default:
		log.Error().Err(err).Msg("Request failed")
		return huma.Error500InternalServerError("Internal error", err)
	}
}
