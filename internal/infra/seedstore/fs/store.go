// Package fs serves seed files from a local directory.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"elevadorpro/internal/seedstore"
)

// Store implements seedstore.Source over plain files under root. Unlike
// object stores there is no metadata sidecar: content type is derived from
// the extension and the ETag is the SHA-256 of the file contents.
type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create seed dir: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store serves.
func (s *Store) Root() string { return s.root }

func (s *Store) Driver() seedstore.Driver { return seedstore.DriverFilesystem }

// sanitizeKey keeps keys relative to root and rejects traversal.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *Store) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

func (s *Store) Get(ctx context.Context, key string) (seedstore.Info, io.ReadCloser, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return seedstore.Info{}, nil, err
	}
	info, err := s.Head(ctx, key)
	if err != nil {
		return seedstore.Info{}, nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return seedstore.Info{}, nil, notFound(key, err)
	}
	return info, file, nil
}

func (s *Store) Head(_ context.Context, key string) (seedstore.Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return seedstore.Info{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return seedstore.Info{}, notFound(key, err)
	}
	if st.IsDir() {
		return seedstore.Info{}, fmt.Errorf("%s is a directory: %w", key, seedstore.ErrNotFound)
	}
	etag, err := fileDigest(path)
	if err != nil {
		return seedstore.Info{}, err
	}
	return seedstore.Info{
		Key:          filepath.ToSlash(key),
		Size:         st.Size(),
		ContentType:  contentTypeFor(key),
		ETag:         etag,
		LastModified: st.ModTime().UTC(),
	}, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]seedstore.Info, error) {
	var infos []seedstore.Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.Head(ctx, key)
		if err != nil {
			return err
		}
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Put replaces the file at key atomically (temp file + rename).
func (s *Store) Put(ctx context.Context, key string, r io.Reader, _ string) (seedstore.Info, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return seedstore.Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return seedstore.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return seedstore.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return seedstore.Info{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return seedstore.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return seedstore.Info{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return seedstore.Info{}, err
	}
	return s.Head(ctx, key)
}

func notFound(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", key, seedstore.ErrNotFound)
	}
	return err
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
