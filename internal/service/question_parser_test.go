package service

import (
	"context"
	"testing"

	"quiz-pilot/internal/adapter/htmlutil"
	"quiz-pilot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const structuredQuizHTML = `<html><body>
<h1>Week 3 quiz</h1>
<form action="/submit" method="post">
  <div class="question">
    <p>Which planet is largest?</p>
    <label><input type="radio" name="q1" value="a"> Mars</label>
    <label><input type="radio" name="q1" value="b"> Jupiter</label>
  </div>
  <fieldset>
    <legend>Pick a colour</legend>
    <select name="colour"><option value="">--</option><option>Red</option><option>Blue</option></select>
  </fieldset>
  <div data-question="Listen and type the passphrase">
    <audio src="/media/pass.mp3"></audio>
    <input type="text" name="passphrase">
  </div>
</form>
</body></html>`

func TestParseQuestions_Structured(t *testing.T) {
	doc, err := htmlutil.Parse(structuredQuizHTML)
	require.NoError(t, err)

	audio := &domain.Attachment{ID: "a1", Kind: domain.KindAudio, SourceURL: "https://quiz.example.com/media/pass.mp3"}
	page := &domain.Page{
		URL:         "https://quiz.example.com/quiz/3",
		Contents:    "Week 3 quiz",
		Attachments: []*domain.Attachment{audio},
	}

	questions := ParseQuestions(context.Background(), doc, page, "https://fallback.example.com/submit")

	require.Len(t, questions, 3)

	assert.Equal(t, "q1", questions[0].ID)
	assert.Equal(t, 0, questions[0].Index)
	assert.Equal(t, "Which planet is largest?", questions[0].Text)
	assert.Equal(t, []string{"Mars", "Jupiter"}, questions[0].Options)
	assert.Equal(t, "q1", questions[0].InputName)
	assert.Equal(t, "https://quiz.example.com/submit", questions[0].SubmitURL)

	assert.Equal(t, "q2", questions[1].ID)
	assert.Equal(t, "Pick a colour", questions[1].Text)
	assert.Equal(t, []string{"Red", "Blue"}, questions[1].Options)
	assert.Equal(t, "colour", questions[1].InputName)

	assert.Equal(t, "q3", questions[2].ID)
	assert.Equal(t, "Listen and type the passphrase", questions[2].Text)
	assert.Empty(t, questions[2].Options)
	assert.NotNil(t, questions[2].Options)
	require.Len(t, questions[2].Media, 1)
	assert.Same(t, audio, questions[2].Media[0])
	assert.Equal(t, "passphrase", questions[2].InputName)

	for _, q := range questions {
		assert.Equal(t, page.URL, q.PageURL)
	}
}

func TestParseQuestions_WholePageFallback(t *testing.T) {
	html := `<html><body><p>Download the CSV and post the sum to https://tds.example.com/submit.</p>
<a href="data.csv">data</a></body></html>`
	doc, err := htmlutil.Parse(html)
	require.NoError(t, err)

	csv := &domain.Attachment{Kind: domain.KindCSV, SourceURL: "https://quiz.example.com/data.csv"}
	page := &domain.Page{
		URL:         "https://quiz.example.com/task",
		Contents:    "Download the CSV and post the sum to https://tds.example.com/submit. data",
		Attachments: []*domain.Attachment{csv},
	}

	questions := ParseQuestions(context.Background(), doc, page, "")

	require.Len(t, questions, 1)
	q := questions[0]
	assert.Equal(t, "q1", q.ID)
	assert.Equal(t, page.Contents, q.Text)
	assert.Equal(t, []string{}, q.Options)
	assert.Equal(t, []*domain.Attachment{csv}, q.Media)
	assert.Equal(t, "https://tds.example.com/submit", q.SubmitURL)
}

func TestDetectSubmitURL_Fallback(t *testing.T) {
	doc, err := htmlutil.Parse(`<html><body><p>Nothing here</p></body></html>`)
	require.NoError(t, err)

	got := DetectSubmitURL(doc, "https://quiz.example.com/", "see https://quiz.example.com/about", "https://default.example.com/submit")
	assert.Equal(t, "https://default.example.com/submit", got)
}

func TestNormalizeOptionAnswer(t *testing.T) {
	q := &domain.QuestionRecord{Options: []string{"Mars", "Jupiter", "10"}}

	tests := []struct {
		name   string
		answer interface{}
		want   interface{}
	}{
		{"letter", "B", "Jupiter"},
		{"lower letter with paren", "a)", "Mars"},
		{"number string", "2", "Jupiter"},
		{"float index", float64(1), "Mars"},
		{"float equal to option text", float64(10), "10"},
		{"exact option text any case", "jupiter", "Jupiter"},
		{"out of range letter", "Z", "Z"},
		{"free text", "Saturn", "Saturn"},
		{"bool untouched", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeOptionAnswer(q, tt.answer))
		})
	}

	assert.Equal(t, "B", NormalizeOptionAnswer(&domain.QuestionRecord{}, "B"))
}
