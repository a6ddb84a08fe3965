package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/viewcasthq/viewcast-server/internal/domain/video"
)

// LocalStorage writes upload bytes to a directory on disk. References are
// relative forward-slash paths under the base directory so they can be served
// as static files.
type LocalStorage struct {
	basePath string
	log      zerolog.Logger
}

func NewLocalStorage(basePath string, log zerolog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{
		basePath: basePath,
		log:      log.With().Str("component", "local-storage").Logger(),
	}, nil
}

func (s *LocalStorage) Save(ctx context.Context, filename, contentType string, body io.Reader, size int64) (*video.StoredObject, error) {
	name := fmt.Sprintf("video-%d%s", time.Now().UnixMilli(), strings.ToLower(filepath.Ext(filename)))
	dst := filepath.Join(s.basePath, name)

	f, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, body)
	if err != nil {
		os.Remove(dst)
		return nil, fmt.Errorf("write file: %w", err)
	}

	s.log.Debug().
		Str("path", dst).
		Int64("bytes", written).
		Str("content_type", contentType).
		Msg("stored upload on disk")

	return &video.StoredObject{
		Reference: filepath.ToSlash(filepath.Join(filepath.Base(s.basePath), name)),
	}, nil
}

func (s *LocalStorage) Remove(ctx context.Context, ref string) error {
	path, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Resolve maps a stored reference to an absolute path, rejecting references
// that would escape the base directory.
func (s *LocalStorage) Resolve(ref string) (string, error) {
	rel := strings.TrimPrefix(filepath.FromSlash(ref), filepath.Base(s.basePath)+string(os.PathSeparator))
	path := filepath.Join(s.basePath, rel)

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("resolve base: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if absPath != absBase && !strings.HasPrefix(absPath, absBase+string(os.PathSeparator)) {
		return "", fmt.Errorf("reference escapes storage dir: %s", ref)
	}
	return absPath, nil
}

// BasePath returns the directory uploads are written to.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) IsLocal() bool {
	return true
}
