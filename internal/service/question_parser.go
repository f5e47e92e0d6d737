package service

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"quiz-pilot/internal/adapter/htmlutil"
	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/util"

	"github.com/PuerkitoBio/goquery"
)

const questionSelector = ".question, [data-question], fieldset"

var (
	absoluteURLPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)
	optionLetter       = regexp.MustCompile(`^\(?([A-Za-z])[).:]?$`)
	optionNumber       = regexp.MustCompile(`^\(?(\d{1,2})[).:]?$`)
)

// ParseQuestions detects the questions of the start page. A page without
// question markup yields a single question holding the whole page text.
func ParseQuestions(ctx context.Context, doc *goquery.Document, page *domain.Page, defaultSubmitURL string) []*domain.QuestionRecord {
	submitURL := DetectSubmitURL(doc, page.URL, page.Contents, defaultSubmitURL)

	byURL := make(map[string]*domain.Attachment, len(page.Attachments))
	for _, a := range page.Attachments {
		byURL[a.SourceURL] = a
	}

	blocks := doc.Find(questionSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered(questionSelector).Length() == 0
	})

	var questions []*domain.QuestionRecord
	blocks.Each(func(_ int, s *goquery.Selection) {
		options := parseOptions(s)
		text := questionText(s)
		if text == "" {
			text = strings.TrimSpace(s.AttrOr("data-question", ""))
		}
		if text == "" && len(options) == 0 {
			return
		}

		var media []*domain.Attachment
		for _, ref := range htmlutil.MediaRefs(ctx, page.URL, s) {
			if a, ok := byURL[ref]; ok {
				media = append(media, a)
			}
		}

		questions = append(questions, &domain.QuestionRecord{
			Text:      text,
			Options:   options,
			Media:     media,
			SubmitURL: submitURL,
			InputName: inputName(s),
		})
	})

	if len(questions) == 0 {
		questions = []*domain.QuestionRecord{{
			Text:      page.Contents,
			Options:   []string{},
			Media:     page.Attachments,
			SubmitURL: submitURL,
			InputName: inputName(doc.Find("form").First()),
		}}
	}

	for i, q := range questions {
		q.ID = fmt.Sprintf("q%d", i+1)
		q.Index = i
		q.PageURL = page.URL
		if q.Options == nil {
			q.Options = []string{}
		}
	}
	return questions
}

// parseOptions collects choice labels from radio/checkbox inputs, then
// select options, then list items.
func parseOptions(s *goquery.Selection) []string {
	var options []string
	s.Find(`input[type="radio"], input[type="checkbox"]`).Each(func(_ int, in *goquery.Selection) {
		if label := choiceLabel(s, in); label != nil {
			if text := htmlutil.VisibleText(label); text != "" {
				options = append(options, text)
				return
			}
		}
		if v, ok := in.Attr("value"); ok && strings.TrimSpace(v) != "" {
			options = append(options, strings.TrimSpace(v))
		}
	})
	if len(options) > 0 {
		return options
	}

	s.Find("select option").Each(func(_ int, o *goquery.Selection) {
		if v, ok := o.Attr("value"); ok && v == "" {
			return
		}
		if text := htmlutil.VisibleText(o); text != "" {
			options = append(options, text)
		}
	})
	if len(options) > 0 {
		return options
	}

	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := htmlutil.VisibleText(li); text != "" {
			options = append(options, text)
		}
	})
	return options
}

func choiceLabel(scope, input *goquery.Selection) *goquery.Selection {
	if parent := input.ParentsFiltered("label").First(); parent.Length() > 0 {
		return parent
	}
	if id, ok := input.Attr("id"); ok && id != "" {
		if label := scope.Find(fmt.Sprintf(`label[for=%q]`, id)); label.Length() > 0 {
			return label.First()
		}
	}
	return nil
}

// questionText is the block text without the option markup.
func questionText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find(`input[type="radio"], input[type="checkbox"]`).Each(func(_ int, in *goquery.Selection) {
		if label := choiceLabel(clone, in); label != nil {
			label.Remove()
		}
	})
	clone.Find("ul, ol, select, input, textarea, button").Remove()
	return htmlutil.VisibleText(clone)
}

func inputName(s *goquery.Selection) string {
	name := ""
	s.Find("input[name], textarea[name], select[name]").EachWithBreak(func(_ int, in *goquery.Selection) bool {
		switch strings.ToLower(in.AttrOr("type", "text")) {
		case "hidden", "submit", "button":
			return true
		}
		name = in.AttrOr("name", "")
		return name == ""
	})
	return name
}

// DetectSubmitURL prefers a form action, then an absolute URL in the page
// text whose path ends in /submit, then fallback.
func DetectSubmitURL(doc *goquery.Document, pageURL, text, fallback string) string {
	if action, ok := doc.Find("form[action]").First().Attr("action"); ok {
		if resolved := util.ResolveURL(pageURL, action); resolved != "" {
			return resolved
		}
	}
	for _, candidate := range absoluteURLPattern.FindAllString(text, -1) {
		candidate = strings.TrimRight(candidate, ".,;:!?)]}")
		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}
		if strings.HasSuffix(strings.TrimRight(u.Path, "/"), "/submit") {
			return candidate
		}
	}
	return fallback
}

// NormalizeOptionAnswer maps an option letter ("B", "b)") or 1-based index
// to the option text. Answers matching an option verbatim are kept.
func NormalizeOptionAnswer(q *domain.QuestionRecord, answer interface{}) interface{} {
	if len(q.Options) == 0 {
		return answer
	}
	switch v := answer.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		for _, opt := range q.Options {
			if strings.EqualFold(opt, trimmed) {
				return opt
			}
		}
		if m := optionLetter.FindStringSubmatch(trimmed); m != nil {
			idx := int(unicodeLower(m[1][0]) - 'a')
			if idx < len(q.Options) {
				return q.Options[idx]
			}
		}
		if m := optionNumber.FindStringSubmatch(trimmed); m != nil {
			n, _ := strconv.Atoi(m[1])
			if n >= 1 && n <= len(q.Options) {
				return q.Options[n-1]
			}
		}
	case float64:
		asText := domain.AnswerRecord{Answer: v}.AnswerString()
		for _, opt := range q.Options {
			if opt == asText {
				return opt
			}
		}
		if v == float64(int(v)) && int(v) >= 1 && int(v) <= len(q.Options) {
			return q.Options[int(v)-1]
		}
	}
	return answer
}

func unicodeLower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}
