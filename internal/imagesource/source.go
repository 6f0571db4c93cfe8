// Package imagesource turns a picked image file into a profile image edit.
// A missing selection is the cancelled picker and yields a nil edit.
package imagesource

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfrund/profilesync/internal/domain"
	"github.com/spf13/afero"
)

var (
	// ErrTooLarge is returned when an image exceeds the configured limit.
	ErrTooLarge = fmt.Errorf("%w: image exceeds size limit", domain.ErrInvalidInput)
	// ErrNotImage is returned when the content is not a recognised image.
	ErrNotImage = fmt.Errorf("%w: file is not an image", domain.ErrInvalidInput)
)

// Source reads images from a filesystem or an upload, bounded by maxBytes.
type Source struct {
	fs       afero.Fs
	maxBytes int64
}

// New creates a Source over fs. A non-positive maxBytes disables the limit.
func New(fs afero.Fs, maxBytes int64) *Source {
	return &Source{fs: fs, maxBytes: maxBytes}
}

// FromFile loads the image at path. An empty path means nothing was picked.
func (s *Source) FromFile(path string) (*domain.ProfileImageEdit, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if s.maxBytes > 0 && info.Size() > s.maxBytes {
		return nil, ErrTooLarge
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()
	return s.FromReader(f)
}

// FromMultipart loads an uploaded image. A nil header means nothing was picked.
func (s *Source) FromMultipart(fh *multipart.FileHeader) (*domain.ProfileImageEdit, error) {
	if fh == nil {
		return nil, nil
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return nil, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.FromReader(f)
}

// FromReader reads r fully and encodes it. The MIME type is sniffed from the
// content; declared types are not trusted.
func (s *Source) FromReader(r io.Reader) (*domain.ProfileImageEdit, error) {
	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	data := buf.Bytes()
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrNotImage
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrNotImage
	}

	edit := &domain.ProfileImageEdit{
		ImageData: base64.StdEncoding.EncodeToString(data),
		MIMEType:  mt.String(),
	}
	if err := edit.Validate(); err != nil {
		return nil, errors.Join(ErrNotImage, err)
	}
	return edit, nil
}
