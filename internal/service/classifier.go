package service

import (
	"regexp"
	"strings"

	"quiz-pilot/internal/domain"
)

var (
	computeKeywords  = regexp.MustCompile(`\b(sum|add|count|greater|less|average|mean|median|total)\b`)
	encodingKeywords = regexp.MustCompile(`\b(base64|gzip|gz|encoded|decode)\b`)
	webKeywords      = regexp.MustCompile(`\b(click|canvas|game|hover)\b`)
)

// ClassifyTask derives a task hint from page text and attachment kinds.
// Specific markers seen on known quiz pages win over generic keywords.
func ClassifyTask(pages []*domain.Page) domain.TaskType {
	var sb strings.Builder
	kinds := map[domain.AttachmentKind]bool{}
	for _, p := range pages {
		sb.WriteString(p.Contents)
		sb.WriteByte(' ')
		for _, a := range p.Attachments {
			kinds[a.Kind] = true
			sb.WriteString(a.SourceURL)
			sb.WriteByte(' ')
		}
	}
	text := sb.String()
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(text, "git/trees"):
		return domain.TaskGitHubTree
	case strings.Contains(text, "messy.csv"):
		return domain.TaskCSV
	case strings.Contains(lower, "uv http get"):
		return domain.TaskUV
	case strings.Contains(text, "audio-passphrase"):
		return domain.TaskAudio
	case strings.Contains(text, "heatmap.png"):
		return domain.TaskImage
	}

	switch {
	case kinds[domain.KindCSV] || kinds[domain.KindSpreadsheet]:
		return domain.TaskCSV
	case kinds[domain.KindAudio] || strings.Contains(lower, "listen"):
		return domain.TaskAudio
	case kinds[domain.KindPDF]:
		return domain.TaskPDF
	case kinds[domain.KindImage]:
		return domain.TaskImage
	case computeKeywords.MatchString(lower):
		return domain.TaskCompute
	case encodingKeywords.MatchString(lower):
		return domain.TaskEncoding
	case webKeywords.MatchString(lower):
		return domain.TaskWeb
	}
	return domain.TaskGeneric
}

// TaskHint is the solver instruction attached to each task type.
func TaskHint(t domain.TaskType) string {
	switch t {
	case domain.TaskGitHubTree:
		return "The task refers to a GitHub git/trees API response; count or filter the tree entries exactly as asked."
	case domain.TaskCSV:
		return "The task depends on tabular data; use the attachment text and apply any filter or cutoff stated on the page."
	case domain.TaskUV:
		return "The task asks for a shell command string; reproduce it exactly with the URL and headers from the page."
	case domain.TaskAudio:
		return "The task depends on an audio transcript; the answer is usually stated in the recording."
	case domain.TaskImage:
		return "The task depends on an image; use the OCR text or describe what the image encodes."
	case domain.TaskPDF:
		return "The task depends on a PDF document; use the extracted text."
	case domain.TaskCompute:
		return "The task asks for a computed value; show the arithmetic in reasoning and return a number."
	case domain.TaskEncoding:
		return "The task involves encoded data; decode it before answering."
	case domain.TaskWeb:
		return "The task describes an interactive page; infer the answer from the rendered text."
	}
	return ""
}
