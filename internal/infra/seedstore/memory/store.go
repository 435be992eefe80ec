// Package memory implements an in-memory seed source for tests.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"elevadorpro/internal/seedstore"
)

type object struct {
	info seedstore.Info
	data []byte
}

// Store implements seedstore.Source backed by process memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]object
	gets atomic.Int64
}

// New returns an empty in-memory seed source.
func New() *Store { return &Store{objs: make(map[string]object)} }

func (s *Store) Driver() seedstore.Driver { return seedstore.DriverMemory }

// Gets reports how many times Get has been called; tests use it to verify caching.
func (s *Store) Gets() int64 { return s.gets.Load() }

// PutString is a test convenience around Put.
func (s *Store) PutString(key, body string) {
	_, _ = s.Put(context.Background(), key, strings.NewReader(body), seedstore.ContentTypeJSON)
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, contentType string) (seedstore.Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return seedstore.Info{}, err
	}
	sum := sha256.Sum256(b)
	info := seedstore.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  contentType,
		ETag:         hex.EncodeToString(sum[:]),
		LastModified: time.Now().UTC(),
	}
	s.mu.Lock()
	s.objs[key] = object{info: info, data: b}
	s.mu.Unlock()
	return info, nil
}

func (s *Store) Get(_ context.Context, key string) (seedstore.Info, io.ReadCloser, error) {
	s.gets.Add(1)
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return seedstore.Info{}, nil, fmt.Errorf("%s: %w", key, seedstore.ErrNotFound)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return obj.info, io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Head(_ context.Context, key string) (seedstore.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objs[key]
	if !ok {
		return seedstore.Info{}, fmt.Errorf("%s: %w", key, seedstore.ErrNotFound)
	}
	return obj.info, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]seedstore.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]seedstore.Info, 0, len(s.objs))
	for k, obj := range s.objs {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			out = append(out, obj.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
