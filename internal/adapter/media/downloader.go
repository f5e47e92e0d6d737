package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"quiz-pilot/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// DefaultMaxBytes caps a single attachment download.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Downloader stores referenced files under a local directory.
type Downloader struct {
	client   *resty.Client
	dir      string
	maxBytes int64
}

// NewDownloader returns a Downloader writing into dir (the OS temp dir when
// empty) and refusing files larger than maxBytes.
func NewDownloader(client *resty.Client, dir string, maxBytes int64) *Downloader {
	if dir == "" {
		dir = os.TempDir()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Downloader{client: client, dir: dir, maxBytes: maxBytes}
}

// Download fetches fileURL and returns its attachment metadata.
func (d *Downloader) Download(ctx context.Context, fileURL string) (*domain.Attachment, error) {
	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("download %s: unexpected status %d", fileURL, resp.StatusCode())
	}

	data, err := io.ReadAll(io.LimitReader(body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileURL, err)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, fmt.Errorf("download %s: file exceeds %d bytes", fileURL, d.maxBytes)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	id := uuid.NewString()
	filename := FilenameFromURL(fileURL)
	localPath := filepath.Join(d.dir, id+"-"+filename)
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", localPath, err)
	}

	contentType := resp.Header().Get("Content-Type")
	kind, ok := domain.KindFromURL(fileURL)
	if !ok {
		kind = domain.KindFromContentType(contentType, domain.KindOther)
	}

	return &domain.Attachment{
		ID:          id,
		Kind:        kind,
		Filename:    filename,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		SourceURL:   fileURL,
		LocalPath:   localPath,
	}, nil
}

// FilenameFromURL derives a filesystem-safe name from the URL path.
func FilenameFromURL(fileURL string) string {
	name := ""
	if u, err := url.Parse(fileURL); err == nil {
		name = path.Base(u.Path)
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "attachment"
	}
	return name
}
