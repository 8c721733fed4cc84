package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/kiranshivaraju/postpilot/pkg/models"
)

const fileVersion = 1

type fileDocument struct {
	Version int           `json:"version"`
	Jobs    []*models.Job `json:"jobs"`
}

// FileStore keeps all jobs in one JSON document. Every write replaces the
// file atomically, so a crash leaves either the old or the new document.
// It is safe for one process only.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Ping checks that the document is readable and the directory exists.
func (s *FileStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("store directory: %w", err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Jobs, nil
}

func (s *FileStore) Get(_ context.Context, id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, j := range doc.Jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) Upsert(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(doc.Jobs, func(j *models.Job) bool { return j.ID == job.ID })
	if i >= 0 {
		doc.Jobs[i] = job.Clone()
	} else {
		doc.Jobs = append(doc.Jobs, job.Clone())
	}
	return s.save(doc)
}

// Delete removes a job. Removing a missing job is not an error.
func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	n := len(doc.Jobs)
	doc.Jobs = slices.DeleteFunc(doc.Jobs, func(j *models.Job) bool { return j.ID == id })
	if len(doc.Jobs) == n {
		return nil
	}
	return s.save(doc)
}

func (s *FileStore) Close() error { return nil }

// load reads the document. A missing file is an empty store.
func (s *FileStore) load() (*fileDocument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileDocument{Version: fileVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read job store: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &fileDocument{Version: fileVersion}, nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode job store %s: %w", s.path, err)
	}
	if doc.Version > fileVersion {
		return nil, fmt.Errorf("job store %s has version %d, newer than supported %d", s.path, doc.Version, fileVersion)
	}
	slices.SortFunc(doc.Jobs, func(a, b *models.Job) int { return strings.Compare(a.ID, b.ID) })
	return &doc, nil
}

func (s *FileStore) save(doc *fileDocument) error {
	doc.Version = fileVersion
	if doc.Jobs == nil {
		doc.Jobs = []*models.Job{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode job store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace job store: %w", err)
	}
	return nil
}

var _ JobStore = (*FileStore)(nil)
