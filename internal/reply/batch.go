package reply

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

// BatchResult is the outcome of processing a file of replies.
type BatchResult struct {
	Results []domain.RoutedAction        `json:"results"`
	Summary map[domain.ReplyCategory]int `json:"summary"`
	Skipped int                          `json:"skipped"`
	Failed  int                          `json:"failed"`
}

// ProcessCSV reads replies with "email" and "reply_body" columns and
// processes each row in order. Rows missing either value are skipped. A row
// that cannot be classified is logged and counted as failed; the rest of the
// file is still processed.
func (r *Router) ProcessCSV(ctx context.Context, in io.Reader) (BatchResult, error) {
	res := BatchResult{Summary: make(map[domain.ReplyCategory]int)}

	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		return res, fmt.Errorf("read csv header: %w", err)
	}
	emailCol, bodyCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "email":
			emailCol = i
		case "reply_body":
			bodyCol = i
		}
	}
	if emailCol < 0 || bodyCol < 0 {
		return res, errors.New(`csv must have "email" and "reply_body" columns`)
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}

		email, body := field(row, emailCol), field(row, bodyCol)
		if email == "" || body == "" {
			res.Skipped++
			continue
		}

		action, err := r.Process(ctx, email, body)
		if err != nil {
			res.Failed++
			log.Error("reply processing failed", "email", email, "error", err)
			continue
		}
		res.Results = append(res.Results, action)
		res.Summary[action.Category]++
	}

	log.Info("reply batch complete",
		"processed", len(res.Results),
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	return res, nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
