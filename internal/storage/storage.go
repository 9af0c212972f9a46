package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"reelcast/internal/models"
)

type dataset struct {
	Reels map[string]models.Reel `json:"reels"`
}

func newDataset() dataset {
	return dataset{Reels: make(map[string]models.Reel)}
}

// Storage is the in-memory Repository backend. When constructed with a file
// path it persists every mutation to that JSON file so local deployments
// survive restarts; with an empty path it is purely in-memory, which is what
// the tests use.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

// NewStorage opens the memory/JSON repository. A non-empty path is loaded if
// the file exists and created on first persist otherwise.
func NewStorage(filePath string) (*Storage, error) {
	s := &Storage{
		filePath: strings.TrimSpace(filePath),
		data:     newDataset(),
	}
	if s.filePath == "" {
		return s, nil
	}
	if dir := filepath.Dir(s.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create datastore directory: %w", err)
		}
	}
	payload, err := os.ReadFile(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read datastore: %w", err)
	}
	if len(payload) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(payload, &s.data); err != nil {
		return nil, fmt.Errorf("decode datastore: %w", err)
	}
	if s.data.Reels == nil {
		s.data.Reels = make(map[string]models.Reel)
	}
	return s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Storage) CreateReel(ctx context.Context, reel models.Reel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data.Reels[reel.ReelID]; exists {
		return fmt.Errorf("create reel %s: %w", reel.ReelID, ErrDuplicateReel)
	}
	if reel.LikedBy == nil {
		reel.LikedBy = []string{}
	}
	s.data.Reels[reel.ReelID] = reel
	if err := s.persistLocked(); err != nil {
		delete(s.data.Reels, reel.ReelID)
		return err
	}
	return nil
}

func (s *Storage) GetReel(ctx context.Context, reelID string) (models.Reel, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Reel{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	reel, ok := s.data.Reels[reelID]
	if !ok {
		return models.Reel{}, false, nil
	}
	reel.LikedBy = reel.CloneLikedBy()
	return reel, true, nil
}

func (s *Storage) ListReels(ctx context.Context) ([]models.Reel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	reels := make([]models.Reel, 0, len(s.data.Reels))
	for _, reel := range s.data.Reels {
		reel.LikedBy = reel.CloneLikedBy()
		reels = append(reels, reel)
	}
	return reels, nil
}

// AddLike increments the like counter and appends the client id under the
// write lock, making the mutation atomic with respect to concurrent likers.
func (s *Storage) AddLike(ctx context.Context, reelID, clientID string) (models.Reel, error) {
	if err := ctx.Err(); err != nil {
		return models.Reel{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	reel, ok := s.data.Reels[reelID]
	if !ok {
		return models.Reel{}, fmt.Errorf("like reel %s: %w", reelID, ErrNotFound)
	}
	previous := reel
	reel.Likes++
	reel.LikedBy = append(reel.CloneLikedBy(), clientID)
	s.data.Reels[reelID] = reel
	if err := s.persistLocked(); err != nil {
		s.data.Reels[reelID] = previous
		return models.Reel{}, err
	}
	reel.LikedBy = reel.CloneLikedBy()
	return reel, nil
}

func (s *Storage) persistLocked() error {
	if s.persistOverride != nil {
		return s.persistOverride(s.data)
	}
	if s.filePath == "" {
		return nil
	}
	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode datastore: %w", err)
	}
	dir := filepath.Dir(s.filePath)
	tmp, err := os.CreateTemp(dir, ".reels-*.json")
	if err != nil {
		return fmt.Errorf("stage datastore write: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write datastore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("flush datastore: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace datastore: %w", err)
	}
	return nil
}
