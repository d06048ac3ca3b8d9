package r2client

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// ContentTypeZstd is the content type of compressed snapshots.
const ContentTypeZstd = "application/zstd"

// CompressFile writes a zstd-compressed copy of srcPath to dstPath.
func CompressFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("compress: open source: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("compress: create dest: %w", err)
	}
	defer func() { _ = dst.Close() }()

	return CompressStream(src, dst)
}

// CompressStream compresses r into w.
func CompressStream(r io.Reader, w io.Writer) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("compress: create encoder: %w", err)
	}
	if _, err := io.Copy(enc, r); err != nil {
		_ = enc.Close()
		return fmt.Errorf("compress: copy: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress: close encoder: %w", err)
	}
	return nil
}

// DecompressStream writes the zstd stream r to dstPath. A partial file is
// removed on failure.
func DecompressStream(r io.Reader, dstPath string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer dec.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("decompress: create dest: %w", err)
	}
	if _, err := io.Copy(dst, dec); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return fmt.Errorf("decompress: copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return fmt.Errorf("decompress: close dest: %w", err)
	}
	return nil
}
