package submitter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-pilot/internal/adapter/fetcher"
	"quiz-pilot/internal/adapter/htmlutil"
	"quiz-pilot/internal/adapter/httpclient"
	"quiz-pilot/internal/config"
	"quiz-pilot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPSubmitter_Submit(t *testing.T) {
	var received []submitPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p submitPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		received = append(received, p)
		switch r.URL.Path {
		case "/submit":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"correct": true, "url": "https://quiz.example.com/q2", "reason": null}`))
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>upstream error</html>"))
		}
	}))
	defer server.Close()

	s := NewHTTPSubmitter(httpclient.New(httpclient.Options{}, zap.NewNop()))
	q := &domain.QuestionRecord{ID: "q1", PageURL: "https://quiz.example.com/q1", SubmitURL: server.URL + "/submit"}
	sub := domain.Submission{
		Email:    "student@example.com",
		Secret:   "s3cret",
		Question: q,
		Answer:   domain.AnswerRecord{QuestionID: "q1", Answer: float64(12345)},
	}

	result, err := s.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.True(t, result.Correct)
	assert.Equal(t, "q1", result.QuestionID)
	assert.Equal(t, "https://quiz.example.com/q2", result.NextURL)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	require.Len(t, received, 1)
	assert.Equal(t, submitPayload{
		Email:  "student@example.com",
		Secret: "s3cret",
		URL:    "https://quiz.example.com/q1",
		Answer: float64(12345),
	}, received[0])

	q.SubmitURL = server.URL + "/broken"
	result, err = s.Submit(context.Background(), sub)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.CodeSubmissionFailed))
	require.NotNil(t, result)
	assert.False(t, result.Correct)
	assert.Equal(t, http.StatusBadGateway, result.StatusCode)
	assert.Empty(t, result.NextURL)
}

func TestHTTPSubmitter_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	s := NewHTTPSubmitter(httpclient.New(httpclient.Options{}, zap.NewNop()))
	_, err := s.Submit(context.Background(), domain.Submission{
		Question: &domain.QuestionRecord{ID: "q1", SubmitURL: url + "/submit"},
	})
	assert.True(t, domain.IsCode(err, domain.CodeSubmissionFailed))
}

func TestBrowserSubmitter_Disabled(t *testing.T) {
	s := NewBrowserSubmitter(fetcher.NewBrowser(config.BrowserConfig{Enabled: false}, ""))
	_, err := s.Submit(context.Background(), domain.Submission{Question: &domain.QuestionRecord{ID: "q1"}})
	assert.ErrorIs(t, err, fetcher.ErrBrowserDisabled)
}

func TestJudgeResultText(t *testing.T) {
	assert.True(t, JudgeResultText("Correct! Well done."))
	assert.False(t, JudgeResultText("Incorrect, try again"))
	assert.False(t, JudgeResultText("Thanks for your answer"))
}

func TestInputSelector(t *testing.T) {
	assert.Equal(t, `[name="answer"]`, InputSelector(&domain.QuestionRecord{InputName: "answer"}))
	assert.Equal(t, defaultInputSelector, InputSelector(&domain.QuestionRecord{}))
}

func TestSubmitControlSelector(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		inputName string
		wantID    string
	}{
		{
			name: "submit inside the answer form beats earlier buttons",
			html: `<button id="play">Play audio</button>
<form id="other"><input name="search"><button id="go" type="submit">Search</button></form>
<form><input name="answer"><button id="hint" type="button">Hint</button><button id="send" type="submit">Send</button></form>`,
			inputName: "answer",
			wantID:    "send",
		},
		{
			name:   "input submit in form",
			html:   `<button id="play">Play</button><form><input type="text"><input id="send" type="submit" value="Go"></form>`,
			wantID: "send",
		},
		{
			name:      "plain button inside form when no submit type",
			html:      `<button id="play">Play</button><form><input name="answer"><button id="send">Send</button></form>`,
			inputName: "answer",
			wantID:    "send",
		},
		{
			name:   "bare button as last resort",
			html:   `<div><input type="text"><button id="send">Send</button></div>`,
			wantID: "send",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := htmlutil.Parse("<html><body>" + tt.html + "</body></html>")
			require.NoError(t, err)

			sel, err := SubmitControlSelector(doc, &domain.QuestionRecord{InputName: tt.inputName})
			require.NoError(t, err)

			first := doc.Find(sel).First()
			id, _ := first.Attr("id")
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSubmitControlSelector_NoControl(t *testing.T) {
	doc, err := htmlutil.Parse(`<html><body><input name="answer"></body></html>`)
	require.NoError(t, err)

	_, err = SubmitControlSelector(doc, &domain.QuestionRecord{InputName: "answer"})
	assert.ErrorIs(t, err, errNoSubmitControl)
}
