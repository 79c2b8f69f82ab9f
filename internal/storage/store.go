package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/RMahshie/apscanner/pkg/models"
)

// ErrNotFound is returned when no reading is stored under an id
var ErrNotFound = errors.New("storage: reading not found")

// ReadingStore keeps uploaded reading documents verbatim
type ReadingStore interface {
	// Put stores data under id and returns the reference recorded in the cache
	Put(ctx context.Context, id string, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

const readingExt = ".json"

type fsStore struct {
	fs  afero.Fs
	dir string
}

// NewFSStore stores readings as <dir>/<id>.json
func NewFSStore(fs afero.Fs, dir string) (ReadingStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &fsStore{fs: fs, dir: dir}, nil
}

func (s *fsStore) path(id string) string {
	return filepath.Join(s.dir, id+readingExt)
}

func (s *fsStore) Put(_ context.Context, id string, data []byte) (string, error) {
	p := s.path(id)
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write reading: %w", err)
	}
	return p, nil
}

func (s *fsStore) Get(_ context.Context, id string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reading: %w", err)
	}
	return data, nil
}

func (s *fsStore) List(_ context.Context) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}

	var ids []string
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, readingExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, readingExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadReadingFile reads a reading document from path
func LoadReadingFile(fs afero.Fs, path string) (*models.Reading, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load reading from %q: %w", path, err)
	}
	var r models.Reading
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse reading from %q: %w", path, err)
	}
	return &r, nil
}

// SaveReadingFile writes an indented reading document to path
func SaveReadingFile(fs afero.Fs, path string, r *models.Reading) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save reading to %q: %w", path, err)
	}
	return nil
}
