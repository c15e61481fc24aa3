// Package storage keeps uploaded attachments on local disk under their BLAKE3 digest.
package storage

import (
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/civicmitra/backend/internal/models"
)

var allowedExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".pdf": true, ".mp4": true,
}

type Local struct {
	Dir     string
	BaseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func AllowedExt(name string) bool {
	return allowedExt[strings.ToLower(filepath.Ext(name))]
}

// Save stores the reader's content. Identical content maps to the same ref and file.
func (l *Local) Save(name, contentType string, r io.Reader) (models.Attachment, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExt[ext] {
		return models.Attachment{}, fmt.Errorf("file type %q not allowed", ext)
	}

	tmp, err := os.CreateTemp(l.Dir, "upload-*")
	if err != nil {
		return models.Attachment{}, err
	}
	defer os.Remove(tmp.Name())

	h := blake3.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return models.Attachment{}, err
	}

	ref := hex.EncodeToString(h.Sum(nil))
	file := ref + ext
	if err := os.Rename(tmp.Name(), filepath.Join(l.Dir, file)); err != nil {
		return models.Attachment{}, err
	}
	return models.Attachment{
		Ref:         ref,
		URL:         l.BaseURL + "/uploads/" + file,
		Name:        filepath.Base(name),
		ContentType: contentType,
		Size:        size,
	}, nil
}

func (l *Local) SaveFiles(files []*multipart.FileHeader) ([]models.Attachment, error) {
	out := make([]models.Attachment, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		a, err := l.Save(fh.Filename, fh.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
