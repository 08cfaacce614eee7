package notes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a collection or note id is unknown.
var ErrNotFound = errors.New("not found")

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

type document struct {
	NoteLists []Collection `json:"noteLists"`
}

// Store owns the note collections and persists them as a JSON document.
// Every mutation is written through to disk before subscribers are told.
type Store struct {
	path string
	now  func() time.Time

	mu          sync.RWMutex
	collections []Collection
	version     uint64
	lastRaw     []byte

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Snapshot)
}

// Load opens the document at path. A missing file yields an empty store.
func Load(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("notes path is empty")
	}
	s := &Store{path: path, now: time.Now, subs: make(map[int]func(Snapshot))}
	if _, err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current collections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Collections: cloneCollections(s.collections), Version: s.version}
}

// Version increases on every observed change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Reload re-reads the document from disk. It reports whether the content
// changed; unchanged bytes (for example our own writes) are ignored.
func (s *Store) Reload() (bool, error) {
	changed, err := s.reload()
	if err != nil || !changed {
		return changed, err
	}
	s.publish()
	return true, nil
}

func (s *Store) reload() (bool, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			defer s.mu.Unlock()
			changed := len(s.collections) > 0 || s.lastRaw != nil
			s.collections = nil
			s.lastRaw = nil
			if changed {
				s.version++
			}
			return changed, nil
		}
		return false, fmt.Errorf("read notes %q: %w", s.path, err)
	}

	s.mu.RLock()
	same := s.lastRaw != nil && bytes.Equal(raw, s.lastRaw)
	s.mu.RUnlock()
	if same {
		return false, nil
	}

	if err := Validate(raw); err != nil {
		return false, fmt.Errorf("load notes %q: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, fmt.Errorf("parse notes %q: %w", s.path, err)
	}

	s.mu.Lock()
	s.collections = doc.NoteLists
	s.lastRaw = raw
	s.version++
	s.mu.Unlock()
	return true, nil
}

// Subscribe registers fn for change notifications. The returned func removes it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) publish() {
	snap := s.Snapshot()
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap.Clone())
	}
}

// CreateCollection appends a new, empty collection.
func (s *Store) CreateCollection(name string) (Collection, error) {
	now := s.now()
	c := Collection{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.mutate(func(cols []Collection) ([]Collection, error) {
		return append(cols, c), nil
	})
	if err != nil {
		return Collection{}, err
	}
	return c, nil
}

// FindCollection returns the first collection with the given name.
func (s *Store) FindCollection(name string) (Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.collections {
		if c.Name == name {
			return cloneCollections([]Collection{c})[0], true
		}
	}
	return Collection{}, false
}

// AddNote appends a note to the collection.
func (s *Store) AddNote(collectionID, title, content string) (Note, error) {
	now := s.now()
	n := Note{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.mutate(func(cols []Collection) ([]Collection, error) {
		i := indexOfCollection(cols, collectionID)
		if i < 0 {
			return nil, fmt.Errorf("collection %q: %w", collectionID, ErrNotFound)
		}
		cols[i].Notes = append(cols[i].Notes, n)
		cols[i].UpdatedAt = now
		return cols, nil
	})
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

// UpdateNote replaces the title and content of a note.
func (s *Store) UpdateNote(collectionID, noteID, title, content string) error {
	now := s.now()
	return s.mutate(func(cols []Collection) ([]Collection, error) {
		i := indexOfCollection(cols, collectionID)
		if i < 0 {
			return nil, fmt.Errorf("collection %q: %w", collectionID, ErrNotFound)
		}
		for j := range cols[i].Notes {
			if cols[i].Notes[j].ID != noteID {
				continue
			}
			cols[i].Notes[j].Title = title
			cols[i].Notes[j].Content = content
			cols[i].Notes[j].UpdatedAt = now
			cols[i].UpdatedAt = now
			return cols, nil
		}
		return nil, fmt.Errorf("note %q: %w", noteID, ErrNotFound)
	})
}

// DeleteNote removes a note from its collection.
func (s *Store) DeleteNote(collectionID, noteID string) error {
	now := s.now()
	return s.mutate(func(cols []Collection) ([]Collection, error) {
		i := indexOfCollection(cols, collectionID)
		if i < 0 {
			return nil, fmt.Errorf("collection %q: %w", collectionID, ErrNotFound)
		}
		for j := range cols[i].Notes {
			if cols[i].Notes[j].ID != noteID {
				continue
			}
			cols[i].Notes = append(cols[i].Notes[:j], cols[i].Notes[j+1:]...)
			cols[i].UpdatedAt = now
			return cols, nil
		}
		return nil, fmt.Errorf("note %q: %w", noteID, ErrNotFound)
	})
}

func (s *Store) mutate(fn func([]Collection) ([]Collection, error)) error {
	s.mu.Lock()
	next, err := fn(cloneCollections(s.collections))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	raw, err := json.MarshalIndent(document{NoteLists: nonNil(next)}, "", "  ")
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := writeFileAtomic(s.path, raw); err != nil {
		s.mu.Unlock()
		return err
	}
	s.collections = next
	s.lastRaw = raw
	s.version++
	s.mu.Unlock()

	s.publish()
	return nil
}

func nonNil(cols []Collection) []Collection {
	if cols == nil {
		return []Collection{}
	}
	for i := range cols {
		if cols[i].Notes == nil {
			cols[i].Notes = []Note{}
		}
	}
	return cols
}

func indexOfCollection(cols []Collection, id string) int {
	for i := range cols {
		if cols[i].ID == id {
			return i
		}
	}
	return -1
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create notes dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".notes-*.json")
	if err != nil {
		return fmt.Errorf("create temp notes file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write notes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close notes: %w", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod notes: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace notes %q: %w", path, err)
	}
	return nil
}
