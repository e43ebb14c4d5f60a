// Package media はアップロード画像の検査・縮小・保存を行う。
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	MaxUploadBytes = 5 << 20
	MaxWidth       = 1280
)

var (
	ErrEmptyFile = errors.New("empty file")
	ErrTooLarge  = errors.New("file exceeds 5MB")
	ErrNotImage  = errors.New("file is not an image")
)

type ImageStore struct {
	dir       string
	publicURL string
}

// dirに保存し、publicURL + "/uploads/<name>" を返す
func NewImageStore(dir, publicURL string) *ImageStore {
	return &ImageStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *ImageStore) Dir() string {
	return s.dir
}

// Save は中身を判定して保存し、公開URLを返す
func (s *ImageStore) Save(r io.Reader) (string, error) {
	// 上限+1まで読んで超過を検出
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > MaxUploadBytes {
		return "", ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}

	out, ext := shrink(data, mt)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), out, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return s.publicURL + "/uploads/" + name, nil
}

// 幅がMaxWidthを超えるものだけ縮小。デコードできない形式はそのまま保存
func shrink(data []byte, mt *mimetype.MIME) ([]byte, string) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil || img.Bounds().Dx() <= MaxWidth {
		return data, mt.Extension()
	}

	resized := resize.Resize(MaxWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	if format == "png" {
		if err := png.Encode(&buf, resized); err != nil {
			return data, mt.Extension()
		}
		return buf.Bytes(), ".png"
	}
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return data, mt.Extension()
	}
	return buf.Bytes(), ".jpg"
}
