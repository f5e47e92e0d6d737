package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// PDFReader extracts plain text from PDF files.
type PDFReader struct{}

func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

func (r *PDFReader) ReadText(_ context.Context, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return string(extractPDFText(data)), nil
}

// extractPDFText falls back to the printable bytes of the file when the PDF
// cannot be parsed.
func extractPDFText(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}
	if out, err := parsePDF(data); err == nil && len(bytes.TrimSpace(out)) > 0 {
		return out
	}
	return extractPrintableText(data)
}

// parsePDF converts panics raised by the pdf package on malformed objects
// into errors.
func parsePDF(data []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

func extractPrintableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			if b := in[0]; b == '\n' || b == '\t' || (b >= 32 && b < 127) {
				out.WriteByte(b)
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if r == '\n' || r == '\t' || r >= 32 && r != 127 {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}
