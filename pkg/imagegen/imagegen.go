// Package imagegen calls the image synthesis service and moves the
// produced files into the directory the application serves images from.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Result describes a generated image.
type Result struct {
	// OutputPath is where the service wrote the image.
	OutputPath string `json:"output_path"`
}

// Client generates an image from a text prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (Result, error)
}

// ErrNoOutput is returned when the service reports success without a file.
var ErrNoOutput = errors.New("imagegen: response has no output path")

// Relocate moves src into dir, keeping its file name, and returns the new
// path. dir is created if needed. Moves across filesystems fall back to
// copy and remove.
func Relocate(src, dir string) (string, error) {
	if src == "" {
		return "", ErrNoOutput
	}
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("imagegen: stat output: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("imagegen: create output dir: %w", err)
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if sameFile(src, dst) {
		return dst, nil
	}
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	if err := copyFile(src, dst); err != nil {
		return "", err
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("imagegen: remove source: %w", err)
	}
	return dst, nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("imagegen: open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("imagegen: create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("imagegen: copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("imagegen: close destination: %w", err)
	}
	return nil
}
