package service

import (
	"context"
	"fmt"
	"strings"

	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/util"

	"go.uber.org/zap"
)

// MediaEnricher fills Attachment.Text from the adapter matching its kind.
// Nil adapters leave the attachment untouched; csv files fall back to Preview
// when CSV is nil.
type MediaEnricher struct {
	PDF         domain.TextReader
	Sheet       domain.TextReader
	OCR         domain.TextReader
	Preview     domain.TextReader
	CSV         domain.TextReader
	Transcriber domain.Transcriber
	MaxChars    int
	logger      *zap.Logger
}

func NewMediaEnricher(pdf, sheet, ocr, preview domain.TextReader, transcriber domain.Transcriber, maxChars int, logger *zap.Logger) *MediaEnricher {
	return &MediaEnricher{
		PDF:         pdf,
		Sheet:       sheet,
		OCR:         ocr,
		Preview:     preview,
		Transcriber: transcriber,
		MaxChars:    maxChars,
		logger:      logger,
	}
}

// Enrich never fails; problems are recorded on att.Error.
func (e *MediaEnricher) Enrich(ctx context.Context, att *domain.Attachment) {
	if att.LocalPath == "" || att.Error != "" {
		return
	}

	var text string
	var err error
	switch att.Kind {
	case domain.KindPDF:
		text, err = e.read(ctx, e.PDF, att.LocalPath)
	case domain.KindSpreadsheet:
		text, err = e.read(ctx, e.Sheet, att.LocalPath)
	case domain.KindImage:
		text, err = e.read(ctx, e.OCR, att.LocalPath)
	case domain.KindCSV:
		r := e.CSV
		if r == nil {
			r = e.Preview
		}
		text, err = e.read(ctx, r, att.LocalPath)
	case domain.KindText, domain.KindJSON:
		text, err = e.read(ctx, e.Preview, att.LocalPath)
	case domain.KindAudio:
		if e.Transcriber != nil {
			text, err = e.Transcriber.Transcribe(ctx, att.LocalPath)
		}
	default:
		if strings.HasPrefix(att.ContentType, "text/") {
			text, err = e.read(ctx, e.Preview, att.LocalPath)
		}
	}

	if err != nil {
		att.Error = err.Error()
		e.logger.Warn("Failed to enrich attachment",
			zap.String("url", att.SourceURL),
			zap.String("kind", string(att.Kind)),
			zap.Error(err),
		)
		return
	}
	att.Text = util.Truncate(strings.TrimSpace(text), e.MaxChars)
}

// read turns a reader panic into an error so one bad file cannot take down
// the extraction goroutine.
func (e *MediaEnricher) read(ctx context.Context, r domain.TextReader, path string) (text string, err error) {
	if r == nil {
		return "", nil
	}
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("reader panicked: %v", p)
		}
	}()
	return r.ReadText(ctx, path)
}
