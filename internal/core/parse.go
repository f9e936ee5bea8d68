package core

// parse.go turns a raw CSV upload into column-keyed rows.
//
// Parsing is deliberately forgiving: invalid UTF-8 is replaced rather
// than rejected, cells are trimmed of whitespace and BOM markers, and
// fully empty rows are dropped. The Validator decides what is actually
// acceptable; this file only gets the data into shape.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrEmptyFile is returned for uploads with no content at all.
var ErrEmptyFile = errors.New("empty file")

// ParseSpreadsheet decodes CSV data into a header list and rows keyed by
// column name. The first non-empty record is the header; columns beyond
// the header width are ignored, short rows leave the missing columns
// empty.
func ParseSpreadsheet(data []byte) ([]string, []Row, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, ErrEmptyFile
	}

	records, err := parseCSV(sanitizeUTF8(data))
	if err != nil {
		return nil, nil, fmt.Errorf("parse CSV: %w", err)
	}

	// Skip leading empty records before the header.
	start := 0
	for start < len(records) && isEmptyRow(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, nil, ErrEmptyFile
	}

	header := records[start]
	columns := make([]string, 0, len(header))
	for _, c := range header {
		columns = append(columns, cleanCell(c))
	}

	var rows []Row
	for _, record := range records[start+1:] {
		if isEmptyRow(record) {
			continue
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = cleanCell(record[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return columns, rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement
// rune so downstream JSON encoding never chokes on the data.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

// cleanCell trims whitespace and a leading BOM from a cell value.
func cleanCell(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	return strings.TrimSpace(s)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
