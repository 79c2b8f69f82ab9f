package processing

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/apscanner/internal/cache"
	"github.com/RMahshie/apscanner/internal/storage"
	"github.com/RMahshie/apscanner/pkg/models"
)

// MockReadingRepository implements repository.ReadingRepository for testing
type MockReadingRepository struct {
	mock.Mock
}

func (m *MockReadingRepository) Create(ctx context.Context, record *models.ReadingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockReadingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReadingRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.ReadingRecord), args.Error(1)
}

func (m *MockReadingRepository) List(ctx context.Context) ([]*models.ReadingRecord, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.ReadingRecord), args.Error(1)
}

func (m *MockReadingRepository) ListByLocale(ctx context.Context, locale string) ([]*models.ReadingRecord, error) {
	args := m.Called(ctx, locale)
	return args.Get(0).([]*models.ReadingRecord), args.Error(1)
}

func sampleReading(t *testing.T, ch24 uint8) []byte {
	t.Helper()
	r := models.Reading{
		Timestamp: 1650000000000,
		Local:     "lab",
		Wifi24GHz: models.ChannelGroups{
			3: {{Observation: models.Observation{SSID: "home", MAC: "aa:bb:cc:dd:ee:01", Channel: 3, Frequency: 2422}, Suggestion: models.Suggest24(ch24)}},
		},
		Wifi5GHz: models.ChannelGroups{
			36: {{Observation: models.Observation{SSID: "home", MAC: "aa:bb:cc:dd:ee:01", Channel: 36, Frequency: 5180, Width: models.Width80},
				Suggestion: models.Suggest5(models.Suggestions5G{NDFS20: 40, DFS20: 52, NDFS40: 46, DFS40: 54, NDFS80: 42, DFS80: 58, DFS160: 50})}},
		},
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	return data
}

func newService(t *testing.T, repo *MockReadingRepository) (ReadingService, storage.ReadingStore, *cache.SuggestionCache) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := storage.NewFSStore(fs, "upload")
	require.NoError(t, err)
	c := cache.New(cache.WithFs(fs))
	if repo == nil {
		return NewReadingService(store, nil, c), store, c
	}
	return NewReadingService(store, repo, c), store, c
}

func TestUpload_StoresVerbatimAndIngests(t *testing.T) {
	svc, store, c := newService(t, nil)
	ctx := context.Background()
	raw := sampleReading(t, 11)

	id, err := svc.Upload(ctx, raw)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	stored, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, raw, stored)

	// the 5GHz pair shares the mac and is ingested last
	s, err := svc.Lookup(ctx, "home", "aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	assert.Equal(t, models.Band5GHz, s.Band)

	e, ok := c.Get("aa:bb:cc:dd:ee:01")
	require.True(t, ok)
	assert.Equal(t, "upload/"+id+".json", e.File)
	assert.Equal(t, 1, svc.CacheSize())
}

func TestUpload_RejectsInvalidReadings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"timestamp":`},
		{"wrong pair shape", `{"timestamp":1,"local":"x","wifi_2_4_ghz":{"6":[{"ssid":"a"}]},"wifi_5_ghz":{}}`},
		{"observation under another channel", `{"timestamp":1,"local":"x","wifi_2_4_ghz":{"1":[[{"ssid":"a","mac":"aa:bb:cc:dd:ee:ff","channel":6,"frequency":2437},6]]},"wifi_5_ghz":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newService(t, nil)
			_, err := svc.Upload(context.Background(), []byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidReading)

			ids, err := store.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, ids)
		})
	}
}

func TestUpload_IndexesWhenRepositoryConfigured(t *testing.T) {
	repo := &MockReadingRepository{}
	repo.On("Create", mock.Anything, mock.MatchedBy(func(r *models.ReadingRecord) bool {
		return r.Locale == "lab" && r.Networks24 == 1 && r.Networks5 == 1
	})).Return(nil)

	svc, _, _ := newService(t, repo)
	_, err := svc.Upload(context.Background(), sampleReading(t, 1))
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestUpload_IndexFailureIsNotFatal(t *testing.T) {
	repo := &MockReadingRepository{}
	repo.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

	svc, _, _ := newService(t, repo)
	id, err := svc.Upload(context.Background(), sampleReading(t, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = svc.Lookup(context.Background(), "home", "aa:bb:cc:dd:ee:01")
	assert.NoError(t, err)
}

func TestIndex(t *testing.T) {
	t.Run("from store", func(t *testing.T) {
		svc, _, _ := newService(t, nil)
		id, err := svc.Upload(context.Background(), sampleReading(t, 1))
		require.NoError(t, err)

		ids, err := svc.Index(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{id}, ids)
	})

	t.Run("from repository", func(t *testing.T) {
		repo := &MockReadingRepository{}
		repo.On("List", mock.Anything).Return([]*models.ReadingRecord{{ID: "a"}, {ID: "b"}}, nil)

		svc, _, _ := newService(t, repo)
		ids, err := svc.Index(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
		repo.AssertExpectations(t)
	})
}

func TestRaw(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	_, err := svc.Raw(ctx, "../cache")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Raw(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupMissAndReuse(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()
	_, err := svc.Upload(ctx, sampleReading(t, 1))
	require.NoError(t, err)

	_, err = svc.Lookup(ctx, "other", "aa:bb:cc:dd:ee:01")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindInReading(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	first, err := svc.Upload(ctx, sampleReading(t, 1))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, sampleReading(t, 6))
	require.NoError(t, err)

	// the stored reading answers with its own 2.4GHz pair, whatever the cache holds
	s, err := svc.FindInReading(ctx, first, "home", "aa:bb:cc:dd:ee:01")
	require.NoError(t, err)
	assert.Equal(t, models.Suggest24(1), s)

	_, err = svc.FindInReading(ctx, first, "home", "00:00:00:00:00:00")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.FindInReading(ctx, uuid.New().String(), "home", "aa:bb:cc:dd:ee:01")
	assert.ErrorIs(t, err, ErrNotFound)
}
