// Package parsers はシートのエクスポート (CSV / XLSX) を行データに変換します。
package parsers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"scmdash/model"
)

// ErrUnsupportedFormat は拡張子から形式を判定できないことを表します。
var ErrUnsupportedFormat = errors.New("unsupported sheet export format")

// ParseSheetCSV はCSVを読み込みます。1行目を見出しとし、読めない行は警告を出して飛ばします。
func ParseSheetCSV(r io.Reader, logger *zap.Logger) ([]model.Row, error) {
	raw, err := io.ReadAll(SkipBOM(r))
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	text, err := DecodeText(raw)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.Comma = detectDelimiter(text)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	colIndex, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []model.Row
	line := 1
	for {
		line++
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("skipping unreadable CSV row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if row, ok := rowFromRecord(colIndex, rec); ok {
			rows = append(rows, model.Row(row))
		}
	}
	return rows, nil
}

// ParseSheetXLSX はXLSXの指定シート (空なら先頭のシート) を読み込みます。
func ParseSheetXLSX(r io.Reader, sheet string) ([]model.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("XLSX has no sheets")
		}
		sheet = sheets[0]
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}
	colIndex, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	var rows []model.Row
	for _, rec := range records[1:] {
		if row, ok := rowFromRecord(colIndex, rec); ok {
			rows = append(rows, model.Row(row))
		}
	}
	return rows, nil
}

// ParseSheet はファイル名の拡張子 (.csv / .xlsx) で形式を判定して読み込みます。
func ParseSheet(name string, r io.Reader, logger *zap.Logger) ([]model.Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ParseSheetCSV(r, logger)
	case ".xlsx", ".xlsm":
		return ParseSheetXLSX(r, "")
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

// ParseSheetFile はファイルを開いて ParseSheet で読み込みます。
func ParseSheetFile(path string, logger *zap.Logger) ([]model.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file %s: %w", path, err)
	}
	defer f.Close()
	return ParseSheet(path, f, logger)
}
