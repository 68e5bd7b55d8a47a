package service

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"Campus_Community/internal/pkg"

	"github.com/google/uuid"
)

const UploadURLPrefix = "/uploads"

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageUploader stores club/board images on local disk.
type ImageUploader struct {
	Dir      string
	MaxBytes int64
}

func NewImageUploader(dir string, maxBytes int64) *ImageUploader {
	return &ImageUploader{Dir: dir, MaxBytes: maxBytes}
}

// Save 校验大小和类型（按文件头嗅探，不信任扩展名），返回可访问的 URL
func (u *ImageUploader) Save(fh *multipart.FileHeader, prefix string) (string, error) {
	if fh == nil || fh.Size == 0 {
		return "", fmt.Errorf("%w: image required", pkg.ErrInvalidParam)
	}
	if fh.Size > u.MaxBytes {
		return "", fmt.Errorf("%w: image larger than %d bytes", pkg.ErrInvalidParam, u.MaxBytes)
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	ext, ok := imageExt[http.DetectContentType(head[:n])]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type", pkg.ErrInvalidParam)
	}
	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if err = os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", err
	}
	name := prefix + "-" + uuid.NewString() + ext
	path := filepath.Join(u.Dir, name)
	if err = writeFile(path, src); err != nil {
		return "", err
	}
	return UploadURLPrefix + "/" + name, nil
}

// writeFile 写入失败时删除残留的半截文件
func writeFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}
