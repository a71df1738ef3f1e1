package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	Comma = ','
	Tab   = '\t'
)

// NA is the token written for missing cells in event files.
const NA = "n/a"

// Read parses a delimited table with a header row. Column types are inferred
// per column: a column whose non-missing fields all parse as numbers becomes
// numeric, one whose fields are all True/False becomes boolean, anything else
// stays text.
func Read(r io.Reader, comma rune) (*Record, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return New(), nil
	}

	rec := New(records[0]...)
	if len(rec.cols) != len(records[0]) {
		return nil, fmt.Errorf("header has duplicate column names")
	}
	raw := records[1:]
	kinds := make([]Kind, len(rec.cols))
	for j := range rec.cols {
		kinds[j] = inferKind(raw, j)
	}

	rec.rows = make([][]Value, len(raw))
	for i, fields := range raw {
		row := make([]Value, len(rec.cols))
		for j, field := range fields {
			row[j] = parseField(field, kinds[j])
		}
		rec.rows[i] = row
	}
	return rec, nil
}

// ReadFile opens path and reads it with the delimiter implied by its
// extension (.tsv is tab-delimited, everything else comma-delimited).
func ReadFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	comma := Comma
	if filepath.Ext(path) == ".tsv" {
		comma = Tab
	}
	rec, err := Read(f, rune(comma))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rec, nil
}

// Write renders the record with a header row, writing na for missing cells.
func Write(w io.Writer, rec *Record, comma rune, na string) error {
	writer := csv.NewWriter(w)
	writer.Comma = comma
	if err := writer.Write(rec.cols); err != nil {
		return err
	}
	line := make([]string, len(rec.cols))
	for _, row := range rec.rows {
		for j, v := range row {
			if v.IsMissing() {
				line[j] = na
			} else {
				line[j] = v.Text()
			}
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes a comma-delimited file with empty missing cells.
func WriteCSVFile(path string, rec *Record) error {
	return writeFile(path, rec, Comma, "")
}

// WriteTSVFile writes a tab-delimited file with missing cells as n/a.
func WriteTSVFile(path string, rec *Record) error {
	return writeFile(path, rec, Tab, NA)
}

func writeFile(path string, rec *Record, comma rune, na string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, rec, comma, na); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func inferKind(rows [][]string, j int) Kind {
	numeric, boolean, seen := true, true, false
	for _, fields := range rows {
		s := fields[j]
		if IsNAToken(s) {
			continue
		}
		seen = true
		if _, ok := parseNumber(s); !ok {
			numeric = false
		}
		if _, ok := parseBool(s); !ok {
			boolean = false
		}
		if !numeric && !boolean {
			return Text
		}
	}
	switch {
	case !seen:
		return Missing
	case numeric:
		return Number
	case boolean:
		return Bool
	}
	return Text
}

func parseField(s string, kind Kind) Value {
	if IsNAToken(s) {
		return Null()
	}
	switch kind {
	case Number:
		f, _ := parseNumber(s)
		return Num(f)
	case Bool:
		b, _ := parseBool(s)
		return Boolean(b)
	}
	return Str(s)
}
