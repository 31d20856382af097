package progress

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{
	"Timestamp", "Sentence", "Words Total", "Words Correct", "Words Helped", "First-Attempt Mastery %", "Retell File",
}

// ExportCSV writes sessions as CSV with a header row. Timestamps are RFC 3339
// in UTC.
func ExportCSV(w io.Writer, sessions []Session) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("progress: export: %w", err)
	}
	for _, s := range sessions {
		rec := []string{
			s.Timestamp.UTC().Format(time.RFC3339),
			s.Sentence,
			strconv.Itoa(s.WordsTotal),
			strconv.Itoa(s.WordsCorrect),
			strconv.Itoa(s.WordsHelped),
			strconv.FormatFloat(s.FirstAttemptMastery, 'f', 1, 64),
			s.RetellFile,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("progress: export: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("progress: export: %w", err)
	}
	return nil
}
