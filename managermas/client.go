// Package managermas は在庫・販売API (ManagerMas) へのプロキシと販売数量の月次集計です。
package managermas

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"scmdash/model"
	"scmdash/upstream"
)

// AuthSchemes は Authorization ヘッダの方式名です。テナントによって受け付ける方式が異なるため、
// 1番目で401になった場合に限り2番目で1回だけ再試行します。
var AuthSchemes = [2]string{"Bearer", "Token"}

const (
	maxBodyBytes   = 8 << 20
	snippetBytes   = 300
	defaultFanOut  = 4
	requestAccepts = "application/json"
)

// Options はクライアントの設定です。
type Options struct {
	BaseURL     string
	Token       string
	RUT         string
	HTTPClient  *http.Client
	FanOutLimit int
}

// Client は ManagerMas API のクライアントです。
type Client struct {
	baseURL    string
	token      string
	rut        string
	httpClient *http.Client
	fanOut     int
	logger     *zap.Logger
}

// NewClient は Client を生成します。
func NewClient(opts Options, logger *zap.Logger) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	fanOut := opts.FanOutLimit
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		token:      strings.TrimSpace(opts.Token),
		rut:        strings.TrimSpace(opts.RUT),
		httpClient: hc,
		fanOut:     fanOut,
		logger:     logger,
	}
}

// Configured はベースURLとトークンがそろっているかを返します。
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.token != ""
}

// get は1つのURLをGETします。401の場合のみ認証方式を切り替えて1回再試行し、それ以外の失敗は再試行しません。
// 試行の記録は成否にかかわらず返します。
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, []model.FetchAttempt, error) {
	var attempts []model.FetchAttempt
	for i, scheme := range AuthSchemes {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, attempts, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", scheme+" "+c.token)
		req.Header.Set("Accept", requestAccepts)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			attempts = append(attempts, model.FetchAttempt{URL: rawURL, Scheme: scheme, Error: err.Error()})
			return nil, attempts, err
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()

		attempt := model.FetchAttempt{
			URL:     rawURL,
			Scheme:  scheme,
			Status:  resp.StatusCode,
			Snippet: upstream.Snippet(body, snippetBytes),
		}
		if readErr != nil {
			attempt.Error = readErr.Error()
			attempts = append(attempts, attempt)
			return nil, attempts, fmt.Errorf("read body: %w", readErr)
		}
		attempts = append(attempts, attempt)

		if resp.StatusCode == http.StatusUnauthorized && i == 0 {
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, attempts, &upstream.StatusError{Status: resp.StatusCode, Body: string(body)}
		}
		if upstream.IsCaptchaPage(body) {
			return nil, attempts, upstream.ErrBlocked
		}
		return body, attempts, nil
	}
	return nil, attempts, &upstream.StatusError{Status: http.StatusUnauthorized}
}
