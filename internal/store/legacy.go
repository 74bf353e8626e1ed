package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// legacyHeader is the column layout of the original bot's raw_results.csv.
var legacyHeader = []string{"timestamp", "id", "winner", "loser"}

// CleanName sanitizes a competitor name the way the legacy CSV log did:
// commas become underscores and newlines become spaces, so a name can never
// break the record layout.
func CleanName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "_")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// ReadLegacyCSV parses a legacy raw_results.csv stream into RawResults,
// preserving order. Rows that cannot be parsed are skipped and counted.
func ReadLegacyCSV(r io.Reader) (results []RawResult, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) != len(legacyHeader) {
		return nil, 0, fmt.Errorf("unexpected header %v", header)
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read record: %w", err)
		}
		if len(record) != 4 {
			skipped++
			continue
		}

		ts, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			skipped++
			continue
		}

		winner := CleanName(record[2])
		loser := CleanName(record[3])
		if record[1] == "" || winner == "" || loser == "" {
			skipped++
			continue
		}

		results = append(results, RawResult{
			Timestamp: ts,
			EventID:   record[1],
			Winner:    winner,
			Loser:     loser,
		})
	}
	return results, skipped, nil
}
