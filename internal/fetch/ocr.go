package fetch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	appLog "sportcal/internal/log"
)

// OCR invokes an external tesseract binary on an image file and returns
// the extracted text. The engine is an opaque collaborator: sportcal
// never interprets its output beyond the line grammar.
type OCR struct {
	// Binary is the tesseract executable name or path.
	Binary string
	// Language is the tesseract language pack, e.g. "por".
	Language string
}

// ExtractText runs OCR over the image bytes. The image is staged in a
// temp file because tesseract reads from disk.
func (o OCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	binary := o.Binary
	if binary == "" {
		binary = "tesseract"
	}
	lang := o.Language
	if lang == "" {
		lang = "por"
	}

	tmp, err := os.CreateTemp("", "sportcal-ocr-*.png")
	if err != nil {
		return "", &Error{Op: "stage OCR image", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", &Error{Op: "stage OCR image", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &Error{Op: "stage OCR image", Err: err}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, tmpName, "stdout", "-l", lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &Error{
			Op:  "run " + filepath.Base(binary),
			Err: fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes())),
		}
	}

	text := stdout.String()
	appLog.Debug("ocr completed", "bytes_in", len(image), "chars_out", len(text))
	return text, nil
}
