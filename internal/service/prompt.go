package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"quiz-pilot/internal/domain"
)

// BuildDirectPrompt asks for every answer of the page in one JSON document.
func BuildDirectPrompt(result *domain.ExtractionResult) string {
	var b strings.Builder
	b.WriteString("You are solving an automated quiz. Answer every question below.\n\n")

	if hint := TaskHint(result.TaskType); hint != "" {
		fmt.Fprintf(&b, "Task hint: %s\n\n", hint)
	}

	fmt.Fprintf(&b, "Quiz page: %s\n\n", result.StartURL)
	b.WriteString("Questions:\n")
	for _, q := range result.Questions {
		fmt.Fprintf(&b, "\n[%s] %s\n", q.ID, q.Text)
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "  %c) %s\n", 'A'+i, opt)
		}
		writeMedia(&b, q.Media, "  ")
	}

	if start := startPage(result); start != nil {
		if !questionsCoverPage(result.Questions, start) {
			fmt.Fprintf(&b, "\nPage text:\n%s\n", start.Contents)
		}
		if extra := unreferencedMedia(result.Questions, start.Attachments); len(extra) > 0 {
			b.WriteString("\nPage attachments:\n")
			writeMedia(&b, extra, "")
		}
	}

	if supporting := result.SupportingPages(); len(supporting) > 0 {
		b.WriteString("\nLinked pages:\n")
		for _, p := range supporting {
			fmt.Fprintf(&b, "\n--- %s ---\n%s\n", p.URL, p.Contents)
			writeMedia(&b, p.Attachments, "")
		}
	}

	b.WriteString(`
Respond with JSON only, in exactly this shape:
{"answers":[{"question_id":"q1","answer":<value>,"reasoning":"<one sentence>"}]}

Rules:
- Include one entry per question id listed above.
- "answer" is a JSON number, string, boolean, array or object as the question requires.
- For multiple choice questions answer with the option text.
- Do not wrap the JSON in markdown.
`)
	return b.String()
}

func writeMedia(b *strings.Builder, media []*domain.Attachment, indent string) {
	for _, a := range media {
		fmt.Fprintf(b, "%sAttachment %s (%s, %s)", indent, a.Filename, a.Kind, a.SourceURL)
		switch {
		case a.Text != "":
			fmt.Fprintf(b, ":\n%s%s\n", indent, a.Text)
		case a.Error != "":
			fmt.Fprintf(b, ": unavailable (%s)\n", a.Error)
		default:
			b.WriteString("\n")
		}
	}
}

func startPage(result *domain.ExtractionResult) *domain.Page {
	for _, p := range result.Pages {
		if p.URL == result.StartURL {
			return p
		}
	}
	return nil
}

// questionsCoverPage is true for the whole-page fallback question.
func questionsCoverPage(questions []*domain.QuestionRecord, page *domain.Page) bool {
	for _, q := range questions {
		if q.Text == page.Contents {
			return true
		}
	}
	return false
}

func unreferencedMedia(questions []*domain.QuestionRecord, attachments []*domain.Attachment) []*domain.Attachment {
	used := map[string]bool{}
	for _, q := range questions {
		for _, a := range q.Media {
			used[a.SourceURL] = true
		}
	}
	var extra []*domain.Attachment
	for _, a := range attachments {
		if !used[a.SourceURL] {
			extra = append(extra, a)
		}
	}
	return extra
}

// RetryFeedback is appended to the base prompt after a rejected reply.
func RetryFeedback(problem string) string {
	return fmt.Sprintf("\nYour previous reply was rejected: %s. Reply again following the rules exactly.\n", problem)
}

var availablePythonLibraries = []string{
	"requests", "pandas", "numpy", "bs4", "PyPDF2", "Pillow", "matplotlib", "networkx",
}

// BuildScriptPrompt asks for a Python body computing final_answer for q.
func BuildScriptPrompt(result *domain.ExtractionResult, q *domain.QuestionRecord) string {
	facts, _ := json.MarshalIndent(scriptFacts(result, q), "", "  ")
	libs, _ := json.Marshal(availablePythonLibraries)

	return fmt.Sprintf(`You are an expert at solving multi-page automated quiz questions.

You are given the extracted quiz data as phase1_facts:
- pages: url, contents (visible text) and attachments (local_path, kind, text)
- question: the question to answer, with its options and media

Write Python code that computes the answer.
- Load attachments from attachment["local_path"] only; never re-download them.
- Your code MUST set final_answer to a plain scalar (int, float, str, bool) or a list.
- Do not print anything and do not write markdown.
- Do not assume CSV column names; inspect the file with pandas first.
- If the question cannot be inferred, set final_answer = "ok".

Installed libraries: %s
Do not use read_html, html5lib, lxml, camelot, tabula, pdfplumber or PyMuPDF.

Wrap the code between the lines #PYTHON_START and #PYTHON_END.

%s

phase1_facts:
%s

Start URL: %s
`, libs, TaskHint(result.TaskType), facts, q.PageURL)
}

func scriptFacts(result *domain.ExtractionResult, q *domain.QuestionRecord) map[string]interface{} {
	return map[string]interface{}{
		"task_type": result.TaskType,
		"pages":     result.Pages,
		"question":  q,
	}
}
