package domain

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// ImageHandle is an immutable reference to raw captured image data and its filename.
// Drag-and-drop uploads, file pickers and files on disk all yield one.
type ImageHandle interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// BytesImage is an in-memory ImageHandle, e.g. a multipart upload already read into memory.
type BytesImage struct {
	filename string
	data     []byte
}

// NewBytesImage copies data so later mutation by the caller cannot leak into the handle.
func NewBytesImage(filename string, data []byte) *BytesImage {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &BytesImage{filename: filename, data: buf}
}

func (b *BytesImage) Name() string { return b.filename }

func (b *BytesImage) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// FileImage is an ImageHandle backed by a path on disk.
type FileImage struct {
	path string
}

func NewFileImage(path string) *FileImage {
	return &FileImage{path: path}
}

func (f *FileImage) Name() string { return filepath.Base(f.path) }

func (f *FileImage) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// EncodedImage is the Normalizer output: a re-encoded blob plus its dimensions.
type EncodedImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}
