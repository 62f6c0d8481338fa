// Package storage holds the durable profile store collaborator and its
// file, S3, and in-memory implementations.
package storage

import (
	"context"
	"errors"

	"recipeagent"
)

// ProfileStore persists user profiles across turns. Load returns (nil, nil)
// for a user the store has never seen.
type ProfileStore interface {
	Load(ctx context.Context, username string) (*recipeagent.UserProfile, error)
	Save(ctx context.Context, profile *recipeagent.UserProfile, contextNote string) error
}

// TestProfileStore is a simple in-memory implementation for testing.
type TestProfileStore struct {
	profiles map[string]*recipeagent.UserProfile
	notes    map[string][]string
	loadErr  error
	saveErr  error
}

func NewTestProfileStore() *TestProfileStore {
	return &TestProfileStore{
		profiles: make(map[string]*recipeagent.UserProfile),
		notes:    make(map[string][]string),
	}
}

func NewTestProfileStoreWithLoadError() *TestProfileStore {
	s := NewTestProfileStore()
	s.loadErr = errors.New("load failed")
	return s
}

func NewTestProfileStoreWithSaveError() *TestProfileStore {
	s := NewTestProfileStore()
	s.saveErr = errors.New("save failed")
	return s
}

func (s *TestProfileStore) Load(_ context.Context, username string) (*recipeagent.UserProfile, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	p, ok := s.profiles[username]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *TestProfileStore) Save(_ context.Context, profile *recipeagent.UserProfile, contextNote string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *profile
	s.profiles[profile.Username] = &cp
	s.notes[profile.Username] = append(s.notes[profile.Username], contextNote)
	return nil
}

// Notes returns the context notes recorded for a user, in save order.
func (s *TestProfileStore) Notes(username string) []string {
	return s.notes[username]
}
