// Package export materializes listing rows as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"affconsole/internal/listing"
)

// WriteCSV writes a header of column labels followed by one record per row
// with the raw column values.
func WriteCSV[R any](w io.Writer, rows []R, columns []listing.Column[R]) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Label
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = col.Raw(row)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the rows to path, creating parent directories.
func SaveCSV[R any](path string, rows []R, columns []listing.Column[R]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(f, rows, columns); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Filename builds "<prefix>-YYYYMMDD-HHMMSS.csv".
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", prefix, now.Format("20060102-150405"))
}

// ToFile returns an export callback for listing.Options that saves into dir
// and reports the written path through done.
func ToFile[R any](dir, prefix string, done func(path string, rows int)) func([]R, []listing.Column[R]) error {
	return func(rows []R, columns []listing.Column[R]) error {
		path := filepath.Join(dir, Filename(prefix, time.Now()))
		if err := SaveCSV(path, rows, columns); err != nil {
			return err
		}
		if done != nil {
			done(path, len(rows))
		}
		return nil
	}
}
