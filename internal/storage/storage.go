package storage

import (
	"mime/multipart"
)

type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage spools uploaded screenplays for the life of a project. Files are
// working copies, not persistence: callers delete them on reset and close.
type Storage interface {
	SaveFile(file multipart.File, info FileInfo) (string, error)
	ReadFile(path string) ([]byte, error)
	DeleteFile(path string) error
}
