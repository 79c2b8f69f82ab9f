package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/apscanner/internal/cache"
	"github.com/RMahshie/apscanner/internal/observability"
	"github.com/RMahshie/apscanner/internal/repository"
	"github.com/RMahshie/apscanner/internal/storage"
	"github.com/RMahshie/apscanner/pkg/models"
)

var (
	// ErrNotFound means the reading or the device suggestion does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidReading wraps decoding and validation failures of an upload
	ErrInvalidReading = errors.New("invalid reading")
)

// ReadingService stores uploaded readings and answers suggestion lookups
type ReadingService interface {
	Upload(ctx context.Context, raw []byte) (string, error)
	Index(ctx context.Context) ([]string, error)
	Raw(ctx context.Context, id string) ([]byte, error)
	Lookup(ctx context.Context, ssid, mac string) (models.Suggestion, error)
	FindInReading(ctx context.Context, id, ssid, mac string) (models.Suggestion, error)
	CacheSize() int
}

type readingService struct {
	store      storage.ReadingStore
	repository repository.ReadingRepository // optional
	cache      *cache.SuggestionCache
}

// NewReadingService wires the store, the optional index repository and the cache
func NewReadingService(store storage.ReadingStore, repo repository.ReadingRepository, c *cache.SuggestionCache) ReadingService {
	return &readingService{
		store:      store,
		repository: repo,
		cache:      c,
	}
}

// Upload validates a reading document, stores it verbatim under a fresh id,
// indexes it and feeds it to the cache.
func (s *readingService) Upload(ctx context.Context, raw []byte) (id string, err error) {
	defer func() { observability.IncReadingStored(err) }()

	var reading models.Reading
	if err := json.Unmarshal(raw, &reading); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}
	if err := reading.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}

	id = uuid.New().String()
	file, err := s.store.Put(ctx, id, raw)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("reading_id", id).
		Str("file", file).
		Int("networks_24", reading.Wifi24GHz.Len()).
		Int("networks_5", reading.Wifi5GHz.Len()).
		Msg("Reading stored")

	if s.repository != nil {
		if err := s.repository.Create(ctx, models.NewReadingRecord(id, file, &reading)); err != nil {
			// The file is the source of truth; a missing index row only hides it from the listing.
			log.Error().Err(err).Str("reading_id", id).Msg("Failed to index reading")
		}
	}

	s.cache.Ingest(&reading, file)
	return id, nil
}

// Index lists the identifiers of every stored reading
func (s *readingService) Index(ctx context.Context) ([]string, error) {
	if s.repository == nil {
		return s.store.List(ctx)
	}

	records, err := s.repository.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// Raw returns a stored reading exactly as it was uploaded
func (s *readingService) Raw(ctx context.Context, id string) ([]byte, error) {
	if err := models.ValidateReadingID(id); err != nil {
		return nil, ErrNotFound
	}
	data, err := s.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// Lookup answers from the cache
func (s *readingService) Lookup(_ context.Context, ssid, mac string) (models.Suggestion, error) {
	suggestion, ok := s.cache.Lookup(ssid, mac)
	if !ok {
		return models.Suggestion{}, ErrNotFound
	}
	return suggestion, nil
}

// FindInReading bypasses the cache and scans one stored reading for the first
// exact ssid+mac match, 2.4GHz before 5GHz.
func (s *readingService) FindInReading(ctx context.Context, id, ssid, mac string) (models.Suggestion, error) {
	data, err := s.Raw(ctx, id)
	if err != nil {
		return models.Suggestion{}, err
	}

	var reading models.Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		return models.Suggestion{}, fmt.Errorf("stored reading %s is unreadable: %w", id, err)
	}

	pair, ok := reading.Find(ssid, mac)
	if !ok {
		return models.Suggestion{}, ErrNotFound
	}
	return pair.Suggestion, nil
}

func (s *readingService) CacheSize() int {
	return s.cache.Len()
}
