package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kdimtricp/speechguard/internal/logging"
)

const maxNameLength = 120

type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

func NewLocalStorage(basePath string, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{
		basePath: basePath,
		logger:   logging.NewComponentLogger(logger, "storage"),
	}, nil
}

// SaveFile writes the upload as "<id>_<original name>" so concurrent uploads
// of identically named files never collide. It returns the stored name.
func (ls *LocalStorage) SaveFile(file io.Reader, info FileInfo) (string, error) {
	id := info.ID
	if id == "" {
		id = uuid.New().String()
	}

	filename := fmt.Sprintf("%s_%s", id, sanitizeName(info.Filename))
	fullPath := filepath.Join(ls.basePath, filename)

	dst, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return filename, nil
}

func (ls *LocalStorage) DeleteFile(name string) error {
	fullPath, err := ls.resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// Path returns the absolute-or-relative on-disk location of a stored name.
func (ls *LocalStorage) Path(name string) string {
	return filepath.Join(ls.basePath, filepath.Base(name))
}

// SweepOlderThan removes uploads whose modification time is older than
// maxAge. Files that cannot be removed are logged and skipped.
func (ls *LocalStorage) SweepOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		return 0, fmt.Errorf("failed to read storage directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if ls.sweepEntry(entry, cutoff) {
			removed++
		}
	}

	return removed, nil
}

func (ls *LocalStorage) sweepEntry(entry fs.DirEntry, cutoff time.Time) bool {
	if entry.IsDir() {
		return false
	}
	fullPath := filepath.Join(ls.basePath, entry.Name())

	info, err := entry.Info()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			ls.logger.Warn("orphaned upload stat failed; file skipped",
				logging.String(logging.FieldEventType, "temp_sweep_failed"),
				logging.String("path", fullPath),
				logging.Error(err))
		}
		return false
	}
	if !info.ModTime().Before(cutoff) {
		return false
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		ls.logger.Warn("orphaned upload remove failed; file remains",
			logging.String(logging.FieldEventType, "temp_sweep_failed"),
			logging.String("path", fullPath),
			logging.Error(err))
		return false
	}
	return true
}

func (ls *LocalStorage) resolve(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("invalid path %q", name)
	}
	return filepath.Join(ls.basePath, name), nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == 0:
			return -1
		case r < 0x20:
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		name = "upload.mp4"
	}
	if len(name) > maxNameLength {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		cut := maxNameLength - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}
	return name
}
