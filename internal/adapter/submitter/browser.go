package submitter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz-pilot/internal/adapter/fetcher"
	"quiz-pilot/internal/adapter/htmlutil"
	"quiz-pilot/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
)

const (
	defaultInputSelector = `input[type="text"], input:not([type]), textarea`
	resultWait           = time.Second
)

var errNoSubmitControl = errors.New("no submit control on page")

// BrowserSubmitter fills the answer into the question page and clicks submit.
type BrowserSubmitter struct {
	browser *fetcher.Browser
}

func NewBrowserSubmitter(browser *fetcher.Browser) *BrowserSubmitter {
	return &BrowserSubmitter{browser: browser}
}

// InputSelector returns the CSS selector of the field receiving the answer.
func InputSelector(q *domain.QuestionRecord) string {
	if q.InputName != "" {
		return fmt.Sprintf(`[name=%q]`, q.InputName)
	}
	return defaultInputSelector
}

// JudgeResultText maps the page shown after submitting to a verdict.
func JudgeResultText(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "correct") && !strings.Contains(lower, "incorrect")
}

// SubmitControlSelector picks the control to click, preferring submit
// controls inside the form that holds the answer field. A bare button is
// only used when nothing more specific exists.
func SubmitControlSelector(doc *goquery.Document, q *domain.QuestionRecord) (string, error) {
	var candidates []string
	if q.InputName != "" {
		form := fmt.Sprintf(`form:has([name=%q])`, q.InputName)
		candidates = append(candidates,
			form+` button[type="submit"], `+form+` input[type="submit"]`,
			form+` button`,
		)
	}
	candidates = append(candidates,
		`form button[type="submit"], form input[type="submit"]`,
		`form button`,
		`button[type="submit"], input[type="submit"]`,
		`button`,
	)
	for _, sel := range candidates {
		if doc.Find(sel).Length() > 0 {
			return sel, nil
		}
	}
	return "", errNoSubmitControl
}

func (s *BrowserSubmitter) Submit(ctx context.Context, sub domain.Submission) (*domain.SubmissionResult, error) {
	q := sub.Question
	tabCtx, cancel, err := s.browser.NewSession(ctx)
	if err != nil {
		return nil, domain.NewSubmissionError(q.PageURL, err)
	}
	defer cancel()

	var pageHTML string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(q.PageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, domain.NewSubmissionError(q.PageURL, err)
	}
	doc, err := htmlutil.Parse(pageHTML)
	if err != nil {
		return nil, domain.NewSubmissionError(q.PageURL, err)
	}
	submitSel, err := SubmitControlSelector(doc, q)
	if err != nil {
		return nil, domain.NewSubmissionError(q.PageURL, err)
	}

	var text, location string
	err = chromedp.Run(tabCtx,
		chromedp.SetValue(InputSelector(q), sub.Answer.AnswerString(), chromedp.ByQuery),
		chromedp.Click(submitSel, chromedp.ByQuery),
		chromedp.Sleep(resultWait),
		chromedp.Text("body", &text, chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return nil, domain.NewSubmissionError(q.PageURL, err)
	}

	result := &domain.SubmissionResult{
		QuestionID: q.ID,
		Correct:    JudgeResultText(text),
	}
	if location != "" && location != q.PageURL && location != q.SubmitURL {
		result.NextURL = location
	}
	return result, nil
}
