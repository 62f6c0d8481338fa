package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"recipeagent"
)

// S3ProfileStore keeps one JSON object per user under a common prefix.
type S3ProfileStore struct {
	bucket string
	prefix string
	s3     *s3.Client
}

type s3Record struct {
	Profile *recipeagent.UserProfile `json:"profile"`
	History []HistoryEntry           `json:"history"`
}

func NewS3ProfileStore(s3Client *s3.Client, bucket, prefix string) *S3ProfileStore {
	return &S3ProfileStore{
		bucket: bucket,
		prefix: prefix,
		s3:     s3Client,
	}
}

func (s *S3ProfileStore) key(username string) string {
	return path.Join(s.prefix, username+".json")
}

func (s *S3ProfileStore) Load(ctx context.Context, username string) (*recipeagent.UserProfile, error) {
	rec, err := s.loadRecord(ctx, username)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Profile, nil
}

func (s *S3ProfileStore) Save(ctx context.Context, profile *recipeagent.UserProfile, contextNote string) error {
	rec, err := s.loadRecord(ctx, profile.Username)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &s3Record{}
	}
	rec.Profile = profile
	if contextNote != "" {
		rec.History = append(rec.History, HistoryEntry{Timestamp: time.Now(), Note: contextNote})
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal profile for %q: %w", profile.Username, err)
	}

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(profile.Username)),
		Body:   bytes.NewReader(b),
	})
	if err != nil {
		return fmt.Errorf("put profile object to S3: %w", err)
	}
	return nil
}

func (s *S3ProfileStore) loadRecord(ctx context.Context, username string) (*s3Record, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(username)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile object from S3: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read profile object body: %w", err)
	}

	var rec s3Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("parse profile object for %q: %w", username, err)
	}
	return &rec, nil
}
