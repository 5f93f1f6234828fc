package personalization

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

const (
	firstLineColumn  = "ai_first_line"
	progressInterval = 50
)

// CSVReport summarizes a CSV personalization run.
type CSVReport struct {
	Total        int
	Personalized int
}

// PersonalizeCSV reads enriched leads from r, writes every row to w with an
// ai_first_line column (added when missing), and waits delay between leads.
// Columns the writer reads are business_name, specific_detail and pain_point.
func (w *Writer) PersonalizeCSV(ctx context.Context, r io.Reader, out io.Writer, delay time.Duration) (CSVReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return CSVReport{}, fmt.Errorf("read leads csv: %w", err)
	}
	if len(rows) == 0 {
		return CSVReport{}, fmt.Errorf("read leads csv: missing header")
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	lineIdx, ok := col[firstLineColumn]
	if !ok {
		lineIdx = len(header)
		header = append(header, firstLineColumn)
	}
	field := func(row []string, name string) string {
		if i, ok := col[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	records := rows[1:]
	log.Info("loaded leads", "count", len(records))

	report := CSVReport{Total: len(records)}
	for n, row := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		lead := domain.Lead{
			BusinessName:   field(row, "business_name"),
			SpecificDetail: field(row, "specific_detail"),
			PainPoint:      field(row, "pain_point"),
		}
		w.PersonalizeLead(ctx, &lead)
		if lead.AIFirstLine != "" {
			report.Personalized++
		}

		for len(row) < len(header) {
			row = append(row, "")
		}
		row[lineIdx] = lead.AIFirstLine
		records[n] = row

		if (n+1)%progressInterval == 0 {
			log.Info("personalization progress", "processed", n+1, "total", len(records), "successful", report.Personalized)
		}
		if delay > 0 && n < len(records)-1 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return report, err
	}
	if err := cw.WriteAll(records); err != nil {
		return report, err
	}
	log.Info("personalization complete", "personalized", report.Personalized, "total", report.Total)
	return report, nil
}
