package service

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/atinyakov/videora/internal/models"
)

// Upload validation errors. They are detected before any network call.
var (
	ErrEmptyFile       = errors.New("the selected file is empty")
	ErrFileTooLarge    = errors.New("the selected file is too large")
	ErrUnsupportedType = errors.New("the selected file is not a video")
	ErrMissingTitle    = errors.New("a title is required")
)

// ValidateUpload checks an upload before it is sent. maxSize <= 0 disables
// the size limit.
func ValidateUpload(u models.Upload, maxSize int64) error {
	if strings.TrimSpace(u.Title) == "" {
		return ErrMissingTitle
	}
	info, err := os.Stat(u.Path)
	if err != nil {
		return fmt.Errorf("cannot read upload: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrUnsupportedType, u.Path)
	}
	if info.Size() == 0 {
		return ErrEmptyFile
	}
	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, info.Size(), maxSize)
	}

	mt, err := mimetype.DetectFile(u.Path)
	if err != nil {
		return fmt.Errorf("cannot read upload: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "video/") {
		return fmt.Errorf("%w: detected %s", ErrUnsupportedType, mt.String())
	}
	return nil
}
