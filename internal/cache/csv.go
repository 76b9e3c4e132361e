package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"MarketScout/internal/model"
)

// WriteCSV encodes t with the index as the first column.
func WriteCSV(w io.Writer, t *model.Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{t.IndexName}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(header))
	for i, label := range t.Index {
		record[0] = label
		for j := range t.Columns {
			record[j+1] = t.At(i, j).String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %q: %w", label, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV decodes a table written by WriteCSV. The index kind is detected
// from the labels, so date and period indexes come back typed.
func ReadCSV(r io.Reader) (*model.Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := model.NewTable(header[0], header[1:]...)
	values := make([]model.Value, len(header)-1)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		for j, cell := range record[1:] {
			values[j] = model.ParseValue(cell)
		}
		if err := t.AppendRow(record[0], values...); err != nil {
			return nil, err
		}
	}
	t.IndexKind = model.DetectIndexKind(t.Index)
	return t, nil
}

// ReadFile loads a table from path.
func ReadFile(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, nil
}

// WriteFile writes t to path through a temporary file in the same directory
// so readers never observe a partial table.
func WriteFile(path string, t *model.Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
