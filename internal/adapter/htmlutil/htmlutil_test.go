package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html><head><title>Quiz</title><style>.x{}</style></head>
<body>
  <script>var secret = 1;</script>
  <h1>Question 1</h1><p>Download <a href="data/messy.csv">the data</a> and
  <a href="/next#part">continue</a>.</p>
  <a href="mailto:prof@example.com">mail</a>
  <a href="https://other.example.org/page">external</a>
  <audio src="clip.opus"></audio>
  <audio><source src="media/alt.mp3"></audio>
  <img src="/img/heatmap.png">
  <img src="/img/heatmap.png">
  <noscript>enable js</noscript>
</body></html>`

func TestParse_StripsNonContent(t *testing.T) {
	doc, err := Parse(samplePage)
	require.NoError(t, err)
	text := VisibleText(doc.Find("body"))
	assert.NotContains(t, text, "secret")
	assert.NotContains(t, text, "enable js")
	assert.Contains(t, text, "Question 1 Download the data and continue .")
}

func TestNeedsRendering(t *testing.T) {
	long := "<html><body>" + strings.Repeat("<p>text</p>", 40) + "</body></html>"
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"empty", "", true},
		{"whitespace", "   \n ", true},
		{"too short", "<html><body>hi</body></html>", true},
		{"script injected", long + `<script>document.querySelector("#q").innerHTML = atob("...")</script>`, true},
		{"script without innerHTML", long + `<script>console.log(1)</script>`, false},
		{"static page", long, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRendering(tt.html, 200))
		})
	}
}

func TestLinksAndMedia(t *testing.T) {
	doc, err := Parse(samplePage)
	require.NoError(t, err)
	ctx := context.Background()
	base := "https://example.com/quiz/1"

	links := Links(ctx, base, doc.Selection)
	assert.Equal(t, []string{"https://example.com/next", "https://other.example.org/page"}, links)

	media := MediaRefs(ctx, base, doc.Selection)
	assert.Equal(t, []string{
		"https://example.com/quiz/data/messy.csv",
		"https://example.com/quiz/clip.opus",
		"https://example.com/quiz/media/alt.mp3",
		"https://example.com/img/heatmap.png",
	}, media)
}

func TestGetAnchors(t *testing.T) {
	doc, err := Parse(`<div><a href="a.html"> First
	link </a><a href="javascript:void(0)">js</a></div>`)
	require.NoError(t, err)
	anchors := GetAnchors(context.Background(), "https://example.com/", doc.Selection)
	require.Len(t, anchors, 1)
	assert.Equal(t, "First link", anchors[0].Name)
	assert.Equal(t, "https://example.com/a.html", anchors[0].Href)
}
