package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-pilot/internal/adapter/httpclient"
	"quiz-pilot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticFetcher_Fetch(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/quiz":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>Q1</body></html>"))
		case "/moved":
			http.Redirect(w, r, "/quiz", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := httpclient.New(httpclient.Options{UserAgent: "quiz-pilot-test"}, zap.NewNop())
	f := NewStaticFetcher(client)
	ctx := context.Background()

	body, err := f.Fetch(ctx, server.URL+"/quiz")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>Q1</body></html>", body)
	assert.Equal(t, "quiz-pilot-test", gotUA)

	body, err = f.Fetch(ctx, server.URL+"/moved")
	require.NoError(t, err)
	assert.Contains(t, body, "Q1")

	_, err = f.Fetch(ctx, server.URL+"/missing")
	assert.Error(t, err)
}

func TestRenderer_Disabled(t *testing.T) {
	r := NewRenderer(NewBrowser(config.BrowserConfig{Enabled: false}, ""))
	_, err := r.Render(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, ErrBrowserDisabled)

	var nilBrowser *Browser
	assert.False(t, nilBrowser.Enabled())
}
