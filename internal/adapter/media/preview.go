package media

import (
	"context"
	"fmt"
	"io"
	"os"

	"quiz-pilot/internal/util"
)

// PreviewReader returns the leading bytes of a text-like file.
type PreviewReader struct {
	maxBytes int
}

func NewPreviewReader(maxBytes int) *PreviewReader {
	if maxBytes <= 0 {
		maxBytes = 4000
	}
	return &PreviewReader{maxBytes: maxBytes}
}

func (r *PreviewReader) ReadText(_ context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(r.maxBytes)+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}
	return util.TruncateBytes(data, r.maxBytes), nil
}
