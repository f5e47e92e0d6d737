package service

import (
	"context"
	"errors"
	"testing"

	"quiz-pilot/internal/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubReader struct {
	text string
	err  error
}

func (s stubReader) ReadText(context.Context, string) (string, error) { return s.text, s.err }

type panickingReader struct{}

func (panickingReader) ReadText(context.Context, string) (string, error) {
	panic("unexpected delimiter ')'")
}

type stubTranscriber struct{ text string }

func (s stubTranscriber) Transcribe(context.Context, string) (string, error) { return s.text, nil }

func TestMediaEnricher_Enrich(t *testing.T) {
	enricher := NewMediaEnricher(
		stubReader{text: "pdf text"},
		stubReader{err: errors.New("corrupt workbook")},
		nil,
		stubReader{text: "  preview  "},
		stubTranscriber{text: "the passphrase is falcon"},
		10,
		zap.NewNop(),
	)

	tests := []struct {
		name     string
		att      *domain.Attachment
		wantText string
		wantErr  string
	}{
		{"pdf", &domain.Attachment{Kind: domain.KindPDF, LocalPath: "/tmp/a.pdf"}, "pdf text", ""},
		{"sheet failure", &domain.Attachment{Kind: domain.KindSpreadsheet, LocalPath: "/tmp/a.xlsx"}, "", "corrupt workbook"},
		{"image without OCR", &domain.Attachment{Kind: domain.KindImage, LocalPath: "/tmp/a.png"}, "", ""},
		{"csv preview trimmed", &domain.Attachment{Kind: domain.KindCSV, LocalPath: "/tmp/a.csv"}, "preview", ""},
		{"audio truncated", &domain.Attachment{Kind: domain.KindAudio, LocalPath: "/tmp/a.mp3"}, "the passph ...[truncated]...", ""},
		{"not downloaded", &domain.Attachment{Kind: domain.KindPDF}, "", ""},
		{"text content type", &domain.Attachment{Kind: domain.KindOther, ContentType: "text/plain", LocalPath: "/tmp/a"}, "preview", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enricher.Enrich(context.Background(), tt.att)
			assert.Equal(t, tt.wantText, tt.att.Text)
			assert.Equal(t, tt.wantErr, tt.att.Error)
		})
	}
}

func TestMediaEnricher_ReaderPanicRecordedAsError(t *testing.T) {
	enricher := NewMediaEnricher(panickingReader{}, nil, nil, nil, nil, 100, zap.NewNop())
	att := &domain.Attachment{Kind: domain.KindPDF, LocalPath: "/tmp/hostile.pdf"}

	assert.NotPanics(t, func() { enricher.Enrich(context.Background(), att) })
	assert.Empty(t, att.Text)
	assert.Contains(t, att.Error, "unexpected delimiter")
}

func TestMediaEnricher_CSVReaderPreferredForCSV(t *testing.T) {
	enricher := NewMediaEnricher(nil, nil, nil, stubReader{text: "raw preview"}, nil, 100, zap.NewNop())
	enricher.CSV = stubReader{text: "Normalized records: []"}

	csv := &domain.Attachment{Kind: domain.KindCSV, LocalPath: "/tmp/messy.csv"}
	enricher.Enrich(context.Background(), csv)
	assert.Equal(t, "Normalized records: []", csv.Text)

	txt := &domain.Attachment{Kind: domain.KindText, LocalPath: "/tmp/notes.txt"}
	enricher.Enrich(context.Background(), txt)
	assert.Equal(t, "raw preview", txt.Text)
}
