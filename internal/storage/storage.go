package storage

import (
	"io"
	"time"
)

type FileInfo struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
}

// Storage holds uploaded videos for the duration of one analysis.
type Storage interface {
	SaveFile(file io.Reader, info FileInfo) (string, error)
	DeleteFile(name string) error
	Path(name string) string
	SweepOlderThan(maxAge time.Duration) (int, error)
}
