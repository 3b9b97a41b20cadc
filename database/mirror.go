package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"scmdash/model"
	"scmdash/sheets"
)

const timeLayout = time.RFC3339

// SheetRow は sheet_rows の1行です。
type SheetRow struct {
	TableName string `db:"table_name"`
	RowID     string `db:"row_id"`
	RowIndex  int    `db:"row_index"`
	Data      string `db:"data"`
	UpdatedAt string `db:"updated_at"`
}

// SyncInfo は sync_log の1行です。
type SyncInfo struct {
	TableName string `db:"table_name" json:"table"`
	Source    string `db:"source" json:"source"`
	RowCount  int    `db:"row_count" json:"rowCount"`
	SyncedAt  string `db:"synced_at" json:"syncedAt"`
}

func decodeRow(data string) (model.Row, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var row model.Row
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// ReplaceTableInTx はテーブルの内容を丸ごと置き換え、sync_log を更新します。
// id の無い行にはUUIDを割り当てます。同じ id が重複した場合は後の行が残ります。
func ReplaceTableInTx(tx *sqlx.Tx, table string, rows []model.Row, source string) (int, error) {
	if _, err := tx.Exec(`DELETE FROM sheet_rows WHERE table_name = ?`, table); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", table, err)
	}

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO sheet_rows (table_name, row_id, row_index, data, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert for %s: %w", table, err)
	}
	defer stmt.Close()

	ts := now()
	for i, r := range rows {
		r = sheets.WithID(r)
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("row %d of %s: %w", i, table, err)
		}
		if _, err := stmt.Exec(table, sheets.RowID(r), i, string(data), ts); err != nil {
			return 0, fmt.Errorf("failed to insert row %d into %s: %w", i, table, err)
		}
	}

	var count int
	if err := tx.Get(&count, `SELECT COUNT(*) FROM sheet_rows WHERE table_name = ?`, table); err != nil {
		return 0, err
	}
	_, err = tx.Exec(`
		INSERT INTO sync_log (table_name, source, row_count, synced_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(table_name) DO UPDATE SET source = excluded.source, row_count = excluded.row_count, synced_at = excluded.synced_at`,
		table, source, count, ts)
	if err != nil {
		return 0, fmt.Errorf("failed to record sync of %s: %w", table, err)
	}
	return count, nil
}

// ReplaceTable は ReplaceTableInTx をトランザクション内で実行します。
func ReplaceTable(db *sqlx.DB, table string, rows []model.Row, source string) (n int, err error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return ReplaceTableInTx(tx, table, rows, source)
}

// GetSyncLog は同期履歴をテーブル名順に返します。
func GetSyncLog(db *sqlx.DB) ([]SyncInfo, error) {
	var infos []SyncInfo
	if err := db.Select(&infos, `SELECT table_name, source, row_count, synced_at FROM sync_log ORDER BY table_name`); err != nil {
		return nil, fmt.Errorf("failed to read sync log: %w", err)
	}
	return infos, nil
}

// MirrorStore はミラーを sheets.Backend として使うための実装です。
type MirrorStore struct {
	db *sqlx.DB
}

var _ sheets.Backend = (*MirrorStore)(nil)

// NewMirrorStore は MirrorStore を生成します。
func NewMirrorStore(db *sqlx.DB) *MirrorStore {
	return &MirrorStore{db: db}
}

// ReadTable はシート上の並び順で行を返します。
func (m *MirrorStore) ReadTable(ctx context.Context, table string) ([]model.Row, error) {
	var stored []SheetRow
	err := m.db.SelectContext(ctx, &stored,
		`SELECT table_name, row_id, row_index, data, updated_at FROM sheet_rows WHERE table_name = ? ORDER BY row_index`, table)
	if err != nil {
		return nil, fmt.Errorf("read mirror table %s: %w", table, err)
	}
	rows := make([]model.Row, 0, len(stored))
	for _, s := range stored {
		row, err := decodeRow(s.Data)
		if err != nil {
			return nil, fmt.Errorf("decode mirror row %s/%s: %w", table, s.RowID, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteRow は行を末尾に追加します。
func (m *MirrorStore) WriteRow(ctx context.Context, table string, row model.Row) (model.Row, error) {
	row = sheets.WithID(row)
	data, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var next sql.NullInt64
	if err := m.db.GetContext(ctx, &next, `SELECT MAX(row_index) + 1 FROM sheet_rows WHERE table_name = ?`, table); err != nil {
		return nil, fmt.Errorf("next row index for %s: %w", table, err)
	}
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO sheet_rows (table_name, row_id, row_index, data, updated_at) VALUES (?, ?, ?, ?, ?)`,
		table, sheets.RowID(row), next.Int64, string(data), now())
	if err != nil {
		return nil, fmt.Errorf("insert into mirror %s: %w", table, err)
	}
	return row, nil
}

// UpdateRow は id の行を置き換えます。並び順は変わりません。
func (m *MirrorStore) UpdateRow(ctx context.Context, table, id string, row model.Row) (model.Row, error) {
	row = row.Clone()
	row["id"] = id
	data, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	res, err := m.db.ExecContext(ctx,
		`UPDATE sheet_rows SET data = ?, updated_at = ? WHERE table_name = ? AND row_id = ?`,
		string(data), now(), table, id)
	if err != nil {
		return nil, fmt.Errorf("update mirror %s/%s: %w", table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%s/%s: %w", table, id, sheets.ErrRowNotFound)
	}
	return row, nil
}

// DeleteRow は id の行を削除します。
func (m *MirrorStore) DeleteRow(ctx context.Context, table, id string) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM sheet_rows WHERE table_name = ? AND row_id = ?`, table, id)
	if err != nil {
		return fmt.Errorf("delete mirror %s/%s: %w", table, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s/%s: %w", table, id, sheets.ErrRowNotFound)
	}
	return nil
}
