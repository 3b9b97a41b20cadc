// Package database はスプレッドシートのテーブルをSQLiteに写したローカルミラーです。
package database

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Open はSQLiteファイルを開きます。":memory:" の場合は接続を1本に制限します。
func Open(path string) (*sqlx.DB, error) {
	dsn := path
	memory := path == ":memory:"
	if !memory && !strings.Contains(path, "?") {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// InitDatabase はスキーマを適用します。何度呼んでも安全です。
func InitDatabase(db *sqlx.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
