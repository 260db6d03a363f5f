package records

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LoadFile loads records from a .csv or .json file.
func LoadFile(path string) ([]Record, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(fp)
	case ".json":
		return ReadJSON(fp)
	}
	return nil, fmt.Errorf("unsupported record file %s (want .csv or .json)", filepath.Base(path))
}

// ReadCSV reads a header row followed by data rows. Cells stay strings; short
// rows leave the trailing columns unset.
func ReadCSV(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("csv has no header")
	}
	header := rows[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	out := []Record{}
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec := Record{}
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			rec[h] = row[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadJSON reads an array of flat objects. Numbers are kept as json.Number.
func ReadJSON(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	out := make([]Record, 0, len(raw))
	for _, m := range raw {
		out = append(out, Record(m))
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
