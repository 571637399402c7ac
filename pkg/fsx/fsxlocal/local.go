package fsxlocal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abraxas-365/gatekeep/pkg/fsx"
)

// LocalFileSystem implements fsx.PathReader on local disk, rooted at basePath.
type LocalFileSystem struct {
	basePath string
}

var _ fsx.PathReader = (*LocalFileSystem)(nil)

// NewLocalFileSystem roots reads at basePath. The directory must exist.
func NewLocalFileSystem(basePath string) (*LocalFileSystem, error) {
	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path is not a directory: %s", basePath)
	}
	return &LocalFileSystem{basePath: absPath}, nil
}

func (l *LocalFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", fsx.ErrNotExist, path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (l *LocalFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	full, err := l.fullPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat file: %w", err)
}

func (l *LocalFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// fullPath resolves path under basePath and refuses to escape it.
func (l *LocalFileSystem) fullPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	full := filepath.Join(l.basePath, filepath.Clean(path))
	if full != l.basePath && !strings.HasPrefix(full, l.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory: %s", path)
	}
	return full, nil
}
