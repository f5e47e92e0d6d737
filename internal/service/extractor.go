package service

import (
	"context"
	"errors"
	"strings"

	"quiz-pilot/internal/adapter/htmlutil"
	"quiz-pilot/internal/config"
	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/util"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExtractorService crawls a quiz page and its linked pages and turns them
// into QuestionRecords.
type ExtractorService struct {
	fetcher          domain.PageFetcher
	renderer         domain.PageRenderer
	downloader       domain.MediaDownloader
	enricher         *MediaEnricher
	cfg              config.ScraperConfig
	defaultSubmitURL string
	logger           *zap.Logger
}

// NewExtractorService creates an extractor. renderer may be nil when no
// browser is available.
func NewExtractorService(
	fetcher domain.PageFetcher,
	renderer domain.PageRenderer,
	downloader domain.MediaDownloader,
	enricher *MediaEnricher,
	cfg config.ScraperConfig,
	defaultSubmitURL string,
	logger *zap.Logger,
) *ExtractorService {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.AttachmentWorkers <= 0 {
		cfg.AttachmentWorkers = 4
	}
	return &ExtractorService{
		fetcher:          fetcher,
		renderer:         renderer,
		downloader:       downloader,
		enricher:         enricher,
		cfg:              cfg,
		defaultSubmitURL: defaultSubmitURL,
		logger:           logger,
	}
}

type crawlItem struct {
	url   string
	depth int
}

// Extract crawls breadth-first from pageURL. Only the start page is required
// to load; linked pages that fail are skipped.
func (s *ExtractorService) Extract(ctx context.Context, pageURL string) (*domain.ExtractionResult, error) {
	startURL, err := util.NormalizeURL(pageURL)
	if err != nil {
		return nil, domain.NewInvalidInputError("url must be an absolute http(s) URL").WithContext("url", pageURL)
	}

	var (
		pages    []*domain.Page
		startDoc *goquery.Document
		visited  = map[string]bool{startURL: true}
		queue    = []crawlItem{{url: startURL}}
	)

	for len(queue) > 0 && len(pages) < s.cfg.MaxPages {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewExtractionError(startURL, err)
		}
		item := queue[0]
		queue = queue[1:]

		page, doc, err := s.loadPage(ctx, item.url, item.depth)
		if err != nil {
			if item.depth == 0 {
				return nil, domain.NewExtractionError(startURL, err)
			}
			s.logger.Warn("Skipping linked page", zap.String("url", item.url), zap.Error(err))
			continue
		}
		pages = append(pages, page)
		if item.depth == 0 {
			startDoc = doc
		}

		if item.depth >= s.cfg.MaxDepth {
			continue
		}
		for _, link := range page.Links {
			if visited[link] {
				continue
			}
			if s.cfg.SameDomainOnly && !util.SameDomain(startURL, link) {
				continue
			}
			visited[link] = true
			queue = append(queue, crawlItem{url: link, depth: item.depth + 1})
		}
	}

	startPage := pages[0]
	questions := ParseQuestions(ctx, startDoc, startPage, s.defaultSubmitURL)
	result := &domain.ExtractionResult{
		StartURL:  startURL,
		TaskType:  ClassifyTask(pages),
		Pages:     pages,
		Questions: questions,
	}

	s.logger.Info("Extracted quiz page",
		zap.String("url", startURL),
		zap.Int("pages", len(pages)),
		zap.Int("questions", len(questions)),
		zap.String("task_type", string(result.TaskType)),
	)
	return result, nil
}

func (s *ExtractorService) loadPage(ctx context.Context, pageURL string, depth int) (*domain.Page, *goquery.Document, error) {
	html, fetchErr := s.fetcher.Fetch(ctx, pageURL)
	if fetchErr != nil {
		s.logger.Debug("Static fetch failed", zap.String("url", pageURL), zap.Error(fetchErr))
	}

	rendered := false
	if htmlutil.NeedsRendering(html, s.cfg.MinStaticLength) && s.renderer != nil {
		renderedHTML, err := s.renderer.Render(ctx, pageURL)
		switch {
		case err != nil:
			s.logger.Warn("Browser rendering failed", zap.String("url", pageURL), zap.Error(err))
		case strings.TrimSpace(renderedHTML) != "":
			html = renderedHTML
			rendered = true
		}
	}

	if strings.TrimSpace(html) == "" {
		if fetchErr != nil {
			return nil, nil, fetchErr
		}
		return nil, nil, errors.New("page returned no HTML")
	}

	doc, err := htmlutil.Parse(html)
	if err != nil {
		return nil, nil, err
	}

	page := &domain.Page{
		URL:                 pageURL,
		Depth:               depth,
		RenderedWithBrowser: rendered,
		Contents:            util.CleanContents(htmlutil.VisibleText(doc.Find("body"))),
		Links:               htmlutil.Links(ctx, pageURL, doc.Selection),
	}
	page.Attachments = s.collectAttachments(ctx, htmlutil.MediaRefs(ctx, pageURL, doc.Selection))
	return page, doc, nil
}

// collectAttachments downloads and enriches refs concurrently, keeping the
// reference order. Failed downloads are returned with Error set.
func (s *ExtractorService) collectAttachments(ctx context.Context, refs []string) []*domain.Attachment {
	if len(refs) == 0 || s.downloader == nil {
		return nil
	}

	attachments := make([]*domain.Attachment, len(refs))
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.AttachmentWorkers)
	for i, ref := range refs {
		g.Go(func() error {
			att, err := s.downloader.Download(ctx, ref)
			if err != nil {
				s.logger.Warn("Failed to download attachment", zap.String("url", ref), zap.Error(err))
				kind, ok := domain.KindFromURL(ref)
				if !ok {
					kind = domain.KindOther
				}
				attachments[i] = &domain.Attachment{
					ID:        uuid.NewString(),
					Kind:      kind,
					Filename:  ref[strings.LastIndex(ref, "/")+1:],
					SourceURL: ref,
					Error:     err.Error(),
				}
				return nil
			}
			if s.enricher != nil {
				s.enricher.Enrich(ctx, att)
			}
			attachments[i] = att
			return nil
		})
	}
	_ = g.Wait()
	return attachments
}
