package htmlutil

import (
	"bytes"
	"context"
	"strings"
	"unicode"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/util"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("quiz-pilot.htmlutil")

// Parse builds a goquery document and drops script, style and noscript nodes.
func Parse(rawHTML string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript").Remove()
	return doc, nil
}

// NeedsRendering reports whether static HTML must be re-fetched through a
// browser: nothing came back, the document is too short to hold a quiz, or
// its content is injected by a script.
func NeedsRendering(rawHTML string, minLength int) bool {
	trimmed := strings.TrimSpace(rawHTML)
	if trimmed == "" || len(trimmed) < minLength {
		return true
	}
	return strings.Contains(rawHTML, "<script") && strings.Contains(rawHTML, "innerHTML")
}

// GetText returns the text below node, separating elements by spaces.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
	if node.Type == html.ElementNode {
		buffer.WriteByte(' ')
	}
}

// VisibleText returns the collapsed, printable text of a selection.
func VisibleText(sel *goquery.Selection) string {
	var buffer bytes.Buffer
	for _, n := range sel.Nodes {
		getTextRecursive(n, &buffer)
		buffer.WriteByte(' ')
	}
	return util.CollapseWhitespace(removeNonPrintable(buffer.String()))
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors returns every a[href] under sel, resolved against baseURL.
func GetAnchors(ctx context.Context, baseURL string, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := util.ResolveURL(baseURL, href)
		if link == "" {
			return
		}
		name := VisibleText(a)
		anchors = append(anchors, Anchor{Name: name, Href: link})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", link),
		))
	})
	return anchors
}

// Links returns the deduplicated anchor targets that are not attachments.
func Links(ctx context.Context, baseURL string, sel *goquery.Selection) []string {
	seen := map[string]bool{}
	var links []string
	for _, a := range GetAnchors(ctx, baseURL, sel) {
		if _, isMedia := domain.KindFromURL(a.Href); isMedia || seen[a.Href] {
			continue
		}
		seen[a.Href] = true
		links = append(links, a.Href)
	}
	return links
}

// MediaRefs returns absolute URLs of attachments referenced under sel:
// anchors with attachment extensions, audio and source elements, images.
func MediaRefs(ctx context.Context, baseURL string, sel *goquery.Selection) []string {
	_, span := tracer.Start(ctx, "MediaRefs")
	defer span.End()

	seen := map[string]bool{}
	var refs []string
	add := func(raw string) {
		ref := util.ResolveURL(baseURL, raw)
		if ref == "" || seen[ref] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	sel.Find("a[href], audio[src], audio source[src], img[src]").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "a" {
			href, _ := s.Attr("href")
			if _, ok := domain.KindFromURL(util.ResolveURL(baseURL, href)); ok {
				add(href)
			}
			return
		}
		src, _ := s.Attr("src")
		add(src)
	})

	span.SetAttributes(attribute.Int("count", len(refs)))
	return refs
}
