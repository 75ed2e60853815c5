package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ady24s/Cloud9/internal/store"
)

// Artifact is the persisted byproduct of one training run: the fitted
// scaler and cluster centroids for one user. It is overwritten
// wholesale on retrain and never shared across users.
type Artifact struct {
	Scaler    *Scaler     `json:"scaler"`
	Centroids [][]float64 `json:"centroids"`
	K         int         `json:"k"`
	TrainedAt time.Time   `json:"trained_at"`
}

// ArtifactStore persists artifacts keyed by user id. Load returns
// store.ErrNoArtifact when the user has never been trained.
type ArtifactStore interface {
	Save(ctx context.Context, userID string, a *Artifact) error
	Load(ctx context.Context, userID string) (*Artifact, error)
	Delete(ctx context.Context, userID string) error
}

// MemoryArtifactStore keeps artifacts in memory; used by tests and as
// a cache-less default.
type MemoryArtifactStore struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact
}

// NewMemoryArtifactStore creates an empty in-memory artifact store
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{artifacts: make(map[string]*Artifact)}
}

func (s *MemoryArtifactStore) Save(ctx context.Context, userID string, a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[userID] = a
	return nil
}

func (s *MemoryArtifactStore) Load(ctx context.Context, userID string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[userID]
	if !ok {
		return nil, store.ErrNoArtifact
	}
	return a, nil
}

func (s *MemoryArtifactStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artifacts, userID)
	return nil
}

// FileArtifactStore persists artifacts as JSON files under a directory
type FileArtifactStore struct {
	dir string
}

// NewFileArtifactStore creates the directory if needed
func NewFileArtifactStore(dir string) (*FileArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FileArtifactStore{dir: dir}, nil
}

func (s *FileArtifactStore) path(userID string) string {
	return filepath.Join(s.dir, userID+".json")
}

func (s *FileArtifactStore) Save(ctx context.Context, userID string, a *Artifact) error {
	blob, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	if err := os.WriteFile(s.path(userID), blob, 0o600); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

func (s *FileArtifactStore) Load(ctx context.Context, userID string) (*Artifact, error) {
	blob, err := os.ReadFile(s.path(userID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, store.ErrNoArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}
	return &a, nil
}

func (s *FileArtifactStore) Delete(ctx context.Context, userID string) error {
	err := os.Remove(s.path(userID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

// DBArtifactStore persists artifacts as JSON blobs in the database
type DBArtifactStore struct {
	artifacts *store.ArtifactStore
}

// NewDBArtifactStore wraps the pgx-backed artifact table
func NewDBArtifactStore(artifacts *store.ArtifactStore) *DBArtifactStore {
	return &DBArtifactStore{artifacts: artifacts}
}

func (s *DBArtifactStore) Save(ctx context.Context, userID string, a *Artifact) error {
	blob, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	return s.artifacts.Save(ctx, userID, blob)
}

func (s *DBArtifactStore) Load(ctx context.Context, userID string) (*Artifact, error) {
	blob, err := s.artifacts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}
	return &a, nil
}

func (s *DBArtifactStore) Delete(ctx context.Context, userID string) error {
	return s.artifacts.Delete(ctx, userID)
}
