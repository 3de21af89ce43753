package fetch

import (
	"context"
	"os"
)

// FileSource reads a pre-extracted OCR text blob from disk. It backs the
// "file" source mode and the -input flag, and keeps the whole pipeline
// runnable offline.
type FileSource struct {
	Path string
}

func (s FileSource) Text(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", &Error{Op: "read text file", Err: err}
	}
	return string(data), nil
}
