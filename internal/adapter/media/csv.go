package media

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNotMemberCSV reports a CSV whose header is not id, name, joined, value.
var ErrNotMemberCSV = errors.New("csv header is not id,name,joined,value")

var memberColumns = []string{"id", "name", "joined", "value"}

var joinedLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"1-2-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// MemberRecord is one cleaned row of a member export.
type MemberRecord struct {
	ID     *int    `json:"id"`
	Name   string  `json:"name"`
	Joined *string `json:"joined"`
	Value  *int    `json:"value"`
}

// NormalizeMemberCSV cleans a messy id,name,joined,value export: dates become
// ISO 8601, numbers become integers and rows are sorted by id. Unparseable
// cells become null; rows without an id sort last.
func NormalizeMemberCSV(r io.Reader) ([]MemberRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if !isMemberHeader(header) {
		return nil, ErrNotMemberCSV
	}

	var records []MemberRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		for len(row) < len(memberColumns) {
			row = append(row, "")
		}
		records = append(records, MemberRecord{
			ID:     parseLooseInt(row[0]),
			Name:   strings.TrimSpace(row[1]),
			Joined: parseLooseDate(row[2]),
			Value:  parseLooseInt(row[3]),
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].ID, records[j].ID
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
	return records, nil
}

func isMemberHeader(header []string) bool {
	if len(header) < len(memberColumns) {
		return false
	}
	for i, want := range memberColumns {
		col := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
		if strings.ReplaceAll(col, " ", "_") != want {
			return false
		}
	}
	return true
}

func parseLooseInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func parseLooseDate(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range joinedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			iso := t.Format("2006-01-02")
			return &iso
		}
	}
	return nil
}

// CSVReader previews a CSV file. Member exports are prefixed with their
// normalized records as JSON.
type CSVReader struct {
	preview *PreviewReader
}

func NewCSVReader(preview *PreviewReader) *CSVReader {
	return &CSVReader{preview: preview}
}

func (r *CSVReader) ReadText(ctx context.Context, localPath string) (string, error) {
	text, err := r.preview.ReadText(ctx, localPath)
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return text, nil
	}
	defer f.Close()

	records, err := NormalizeMemberCSV(f)
	if err != nil || len(records) == 0 {
		return text, nil
	}
	normalized, err := json.Marshal(records)
	if err != nil {
		return text, nil
	}
	return "Normalized records: " + string(normalized) + "\n\n" + text, nil
}
