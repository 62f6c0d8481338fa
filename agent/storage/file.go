package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"recipeagent"
)

// FileProfileStore keeps every user in a single JSON workbook file. Each save
// rewrites the whole file, which is fine at this scale and keeps the format
// trivially inspectable.
type FileProfileStore struct {
	mu       sync.Mutex
	filePath string
}

type workbook struct {
	Users map[string]*userRecord `json:"users"`
}

type userRecord struct {
	Profile *recipeagent.UserProfile `json:"profile"`
	History []HistoryEntry           `json:"history"`
}

// HistoryEntry is one saved context note for a user.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

func NewFileProfileStore(filePath string) (*FileProfileStore, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create profile store directory: %w", err)
		}
	}
	return &FileProfileStore{filePath: filePath}, nil
}

func (s *FileProfileStore) Load(_ context.Context, username string) (*recipeagent.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wb, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := wb.Users[username]
	if !ok || rec.Profile == nil {
		return nil, nil
	}
	return rec.Profile, nil
}

func (s *FileProfileStore) Save(_ context.Context, profile *recipeagent.UserProfile, contextNote string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wb, err := s.read()
	if err != nil {
		return err
	}

	rec, ok := wb.Users[profile.Username]
	if !ok {
		rec = &userRecord{}
		wb.Users[profile.Username] = rec
	}
	rec.Profile = profile
	if contextNote != "" {
		rec.History = append(rec.History, HistoryEntry{Timestamp: time.Now(), Note: contextNote})
	}

	return s.write(wb)
}

// History returns the saved context notes for a user, oldest first.
func (s *FileProfileStore) History(_ context.Context, username string) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wb, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := wb.Users[username]
	if !ok {
		return nil, fmt.Errorf("user %q not found", username)
	}
	return rec.History, nil
}

// ListUsers returns every known username in sorted order.
func (s *FileProfileStore) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wb, err := s.read()
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(wb.Users))
	for u := range wb.Users {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

func (s *FileProfileStore) read() (*workbook, error) {
	b, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return &workbook{Users: make(map[string]*userRecord)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile store: %w", err)
	}

	var wb workbook
	if err := json.Unmarshal(b, &wb); err != nil {
		return nil, fmt.Errorf("parse profile store: %w", err)
	}
	if wb.Users == nil {
		wb.Users = make(map[string]*userRecord)
	}
	return &wb, nil
}

func (s *FileProfileStore) write(wb *workbook) error {
	b, err := json.MarshalIndent(wb, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile store: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write profile store: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("replace profile store: %w", err)
	}
	return nil
}
