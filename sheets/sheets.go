// Package sheets は Apps Script 経由でスプレッドシートのテーブルを読み書きするクライアントです。
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scmdash/mappers"
	"scmdash/model"
	"scmdash/upstream"
)

// ErrNotConfigured は VITE_SHEETS_API_URL が設定されていないことを表します。
var ErrNotConfigured = errors.New("VITE_SHEETS_API_URL is not configured")

// ErrRowNotFound は更新・削除対象の行が存在しないことを表します。
var ErrRowNotFound = errors.New("row not found")

const maxBodyBytes = 32 << 20

// 応答で行の配列を包むキー (先頭優先)
var rowListKeys = []string{"data", "rows", "records", "items"}

// Backend はテーブル単位の読み書きです。Apps Script クライアントとローカルのミラーが実装します。
type Backend interface {
	ReadTable(ctx context.Context, table string) ([]model.Row, error)
	WriteRow(ctx context.Context, table string, row model.Row) (model.Row, error)
	UpdateRow(ctx context.Context, table, id string, row model.Row) (model.Row, error)
	DeleteRow(ctx context.Context, table, id string) error
}

// RowID は行の識別子を返します。
func RowID(row model.Row) string {
	for _, k := range []string{"id", "ID", "row_id"} {
		if s := mappers.ToString(row[k]); s != "" {
			return s
		}
	}
	return ""
}

// WithID は id が無ければ新しいUUIDを割り当てた複製を返します。
func WithID(row model.Row) model.Row {
	out := row.Clone()
	if RowID(out) == "" {
		out["id"] = uuid.NewString()
	}
	return out
}

// Client は Apps Script Web アプリへのHTTPクライアントです。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient は Client を生成します。baseURL が空なら ErrNotConfigured を返します。
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

type mutation struct {
	Action string    `json:"action"`
	Table  string    `json:"table"`
	ID     string    `json:"id,omitempty"`
	Data   model.Row `json:"data,omitempty"`
}

func (c *Client) readURL(table string) string {
	q := url.Values{}
	q.Set("action", "read")
	q.Set("table", table)
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + q.Encode()
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read sheets response: %w", err)
	}
	if upstream.IsCaptchaPage(body) {
		return nil, upstream.ErrBlocked
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &upstream.StatusError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// ReadTable はテーブルの全行を取得します。応答は行の配列か、data 等のキーで包まれた配列です。
func (c *Client) ReadTable(ctx context.Context, table string) ([]model.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.readURL(table), nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", table, err)
	}
	value, ok := upstream.DecodeSoft(body)
	if !ok {
		return nil, fmt.Errorf("read table %s: response is not JSON: %s", table, upstream.Snippet(body, 120))
	}
	if err := appError(value); err != nil {
		return nil, fmt.Errorf("read table %s: %w", table, err)
	}
	return RowsFromBody(value), nil
}

func (c *Client) post(ctx context.Context, m mutation) (any, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", m.Action, m.Table, err)
	}
	value, _ := upstream.DecodeSoft(body)
	if err := appError(value); err != nil {
		return nil, fmt.Errorf("%s %s: %w", m.Action, m.Table, err)
	}
	return value, nil
}

// WriteRow は行を追加します。id が無い行にはUUIDを割り当てます。
func (c *Client) WriteRow(ctx context.Context, table string, row model.Row) (model.Row, error) {
	row = WithID(row)
	value, err := c.post(ctx, mutation{Action: "create", Table: table, Data: row})
	if err != nil {
		return nil, err
	}
	return echoedRow(value, row), nil
}

// UpdateRow は id の行を置き換えます。
func (c *Client) UpdateRow(ctx context.Context, table, id string, row model.Row) (model.Row, error) {
	row = row.Clone()
	row["id"] = id
	value, err := c.post(ctx, mutation{Action: "update", Table: table, ID: id, Data: row})
	if err != nil {
		return nil, err
	}
	return echoedRow(value, row), nil
}

// DeleteRow は id の行を削除します。
func (c *Client) DeleteRow(ctx context.Context, table, id string) error {
	_, err := c.post(ctx, mutation{Action: "delete", Table: table, ID: id})
	return err
}

// RowsFromBody は応答から行の配列を取り出します。オブジェクト以外の要素は捨てます。
func RowsFromBody(value any) []model.Row {
	var list []any
	switch v := value.(type) {
	case []any:
		list = v
	case map[string]any:
		for _, k := range rowListKeys {
			if l, ok := v[k].([]any); ok {
				list = l
				break
			}
		}
	}
	rows := make([]model.Row, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, model.Row(m))
		}
	}
	return rows
}

// appError は {ok:false, error:"..."} 形式のアプリケーションエラーを取り出します。
func appError(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	if okValue, present := m["ok"].(bool); present && !okValue {
		msg := mappers.ToString(m["error"])
		if msg == "" {
			msg = "request rejected"
		}
		if strings.Contains(strings.ToLower(msg), "not found") {
			return fmt.Errorf("%w: %s", ErrRowNotFound, msg)
		}
		return errors.New(msg)
	}
	return nil
}

func echoedRow(value any, sent model.Row) model.Row {
	if m, ok := value.(map[string]any); ok {
		if data, ok := m["data"].(map[string]any); ok {
			return model.Row(data)
		}
	}
	return sent
}
