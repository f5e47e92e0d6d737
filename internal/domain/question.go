package domain

import (
	"path"
	"strings"
)

// AttachmentKind classifies downloaded media by how it is turned into text.
type AttachmentKind string

const (
	KindImage       AttachmentKind = "image"
	KindAudio       AttachmentKind = "audio"
	KindPDF         AttachmentKind = "pdf"
	KindSpreadsheet AttachmentKind = "spreadsheet"
	KindCSV         AttachmentKind = "csv"
	KindText        AttachmentKind = "text"
	KindJSON        AttachmentKind = "json"
	KindOther       AttachmentKind = "other"
)

var extensionKinds = map[string]AttachmentKind{
	".csv":  KindCSV,
	".pdf":  KindPDF,
	".txt":  KindText,
	".json": KindJSON,
	".opus": KindAudio,
	".wav":  KindAudio,
	".mp3":  KindAudio,
	".ogg":  KindAudio,
	".m4a":  KindAudio,
	".png":  KindImage,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".gif":  KindImage,
	".webp": KindImage,
	".xlsx": KindSpreadsheet,
}

// KindFromURL returns the attachment kind implied by the URL path extension,
// and false when the extension is not a recognised attachment type.
func KindFromURL(rawURL string) (AttachmentKind, bool) {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	kind, ok := extensionKinds[strings.ToLower(path.Ext(p))]
	return kind, ok
}

// KindFromContentType refines a kind using the response Content-Type.
func KindFromContentType(contentType string, fallback AttachmentKind) AttachmentKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case strings.HasPrefix(ct, "audio/"):
		return KindAudio
	case ct == "application/pdf":
		return KindPDF
	case strings.Contains(ct, "spreadsheetml"):
		return KindSpreadsheet
	case ct == "text/csv":
		return KindCSV
	case ct == "application/json":
		return KindJSON
	}
	return fallback
}

// Attachment is a downloaded media file referenced by a quiz page.
type Attachment struct {
	ID          string         `json:"id"`
	Kind        AttachmentKind `json:"kind"`
	Filename    string         `json:"filename"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	SourceURL   string         `json:"source_url"`
	LocalPath   string         `json:"local_path,omitempty"`
	Text        string         `json:"text,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Page is one crawled document.
type Page struct {
	URL                 string        `json:"url"`
	Depth               int           `json:"depth"`
	RenderedWithBrowser bool          `json:"rendered_with_browser"`
	Contents            string        `json:"contents"`
	Links               []string      `json:"links,omitempty"`
	Attachments         []*Attachment `json:"attachments,omitempty"`
}

// QuestionRecord is one question detected on a quiz page.
type QuestionRecord struct {
	ID        string        `json:"id"`
	Index     int           `json:"index"`
	PageURL   string        `json:"page_url"`
	Text      string        `json:"text"`
	Options   []string      `json:"options"`
	Media     []*Attachment `json:"media,omitempty"`
	SubmitURL string        `json:"submit_url"`
	InputName string        `json:"input_name,omitempty"`
}

// TaskType is a coarse hint about what a quiz page asks for.
type TaskType string

const (
	TaskGitHubTree TaskType = "github_tree"
	TaskCSV        TaskType = "csv"
	TaskUV         TaskType = "uv"
	TaskAudio      TaskType = "audio"
	TaskImage      TaskType = "image"
	TaskPDF        TaskType = "pdf"
	TaskCompute    TaskType = "compute"
	TaskEncoding   TaskType = "encoding"
	TaskWeb        TaskType = "web"
	TaskGeneric    TaskType = "generic"
)

// ExtractionResult is the Extractor output for a single quiz page.
type ExtractionResult struct {
	StartURL  string            `json:"start_url"`
	TaskType  TaskType          `json:"task_type"`
	Pages     []*Page           `json:"pages"`
	Questions []*QuestionRecord `json:"questions"`
}

// SupportingPages returns every crawled page except the start page.
func (r *ExtractionResult) SupportingPages() []*Page {
	var pages []*Page
	for _, p := range r.Pages {
		if p.URL != r.StartURL {
			pages = append(pages, p)
		}
	}
	return pages
}
