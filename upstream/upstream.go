// Package upstream は外部HTTPサービス(Apps Script, ManagerMas)共通のエラー分類と応答判定です。
package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrBlocked は上流がCAPTCHAの中間ページを返したことを表します。
var ErrBlocked = errors.New("blocked by upstream captcha page")

// StatusError は上流の非2xx応答です。
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, Snippet([]byte(e.Body), 200))
}

// IsCaptchaPage は本文が "captcha" (大小無視) と HTML の doctype を両方含むかを判定します。ステータスコードは見ません。
func IsCaptchaPage(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("captcha")) && bytes.Contains(lower, []byte("<!doctype html"))
}

// Snippet は本文の先頭 n バイトまでを文字境界で切り詰めて返します。
func Snippet(body []byte, n int) string {
	if len(body) <= n {
		return strings.TrimSpace(string(body))
	}
	cut := body[:n]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(string(cut)) + "…"
}

// DecodeSoft はJSONとして解釈できれば値を、できなければ生のテキストを返します。
// ok は本文全体が1つのJSON値として解釈できたかどうかです。後ろに余分なデータがあれば false です。
func DecodeSoft(body []byte) (value any, ok bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(body), false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return string(body), false
	}
	return v, true
}
