// Package loader はシートのエクスポートやApps Scriptからローカルミラーへの取り込みです。
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"scmdash/database"
	"scmdash/model"
	"scmdash/parsers"
)

// ErrUnknownTable はダッシュボードが扱わないテーブル名です。
var ErrUnknownTable = errors.New("unknown table")

func checkTable(table string) error {
	if !slices.Contains(model.AllTables, table) {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return nil
}

// Import はエクスポートされたシートを読み込み、ミラーの該当テーブルを置き換えます。
func Import(db *sqlx.DB, table, name string, r io.Reader, logger *zap.Logger) (int, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	rows, err := parsers.ParseSheet(name, r, logger)
	if err != nil {
		return 0, err
	}
	n, err := database.ReplaceTable(db, table, rows, filepath.Base(name))
	if err != nil {
		return 0, err
	}
	logger.Info("imported sheet export", zap.String("table", table), zap.String("file", name), zap.Int("rows", n))
	return n, nil
}

// ImportFile はファイルパスを指定して Import します。
func ImportFile(db *sqlx.DB, table, path string, logger *zap.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("could not open file %s: %w", path, err)
	}
	defer f.Close()
	return Import(db, table, path, f, logger)
}

// SyncSource は同期元です。sheets.Client がこれを満たします。
type SyncSource interface {
	ReadTable(ctx context.Context, table string) ([]model.Row, error)
}

// Sync は各テーブルを同期元から読み、ミラーを丸ごと置き換えます。
// 1テーブルの失敗は他のテーブルを止めず、最後にまとめて返します。
func Sync(ctx context.Context, db *sqlx.DB, src SyncSource, tables []string, logger *zap.Logger) (map[string]int, error) {
	counts := make(map[string]int, len(tables))
	var errs []error
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := checkTable(table); err != nil {
			errs = append(errs, err)
			continue
		}
		rows, err := src.ReadTable(ctx, table)
		if err != nil {
			logger.Warn("mirror sync failed", zap.String("table", table), zap.Error(err))
			errs = append(errs, fmt.Errorf("sync %s: %w", table, err))
			continue
		}
		n, err := database.ReplaceTable(db, table, rows, "sheets")
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", table, err))
			continue
		}
		counts[table] = n
	}
	logger.Info("mirror sync finished", zap.Any("rows", counts), zap.Int("failed", len(errs)))
	return counts, errors.Join(errs...)
}
