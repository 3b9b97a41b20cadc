package parsers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM はUTF-8 BOMをスキップします。
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	peeked, err := br.Peek(3)
	if err != nil {
		return br
	}
	if bytes.Equal(peeked, utf8BOM) {
		br.Discard(3)
	}
	return br
}

// DecodeText はUTF-8として不正なバイト列を Windows-1252 とみなしてUTF-8に変換します。
// Excel (スペイン語ロケール) で保存したCSVはこの形式になります。
func DecodeText(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return out, nil
}

// detectDelimiter は見出し行のカンマとセミコロンの数から区切り文字を決めます。
func detectDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

// headerIndex は見出し名から列インデックスを作ります。空の見出しは無視し、同名の列は先頭を採用します。
func headerIndex(header []string) (map[string]int, error) {
	colIndex := make(map[string]int)
	for i, colName := range header {
		name := strings.TrimSpace(colName)
		if name == "" {
			continue
		}
		if _, dup := colIndex[name]; dup {
			continue
		}
		colIndex[name] = i
	}
	if len(colIndex) == 0 {
		return nil, fmt.Errorf("header row has no column names")
	}
	return colIndex, nil
}

// rowFromRecord は見出しに従って1行を model.Row 相当の map にします。すべて空の行は ok=false です。
func rowFromRecord(colIndex map[string]int, rec []string) (map[string]any, bool) {
	row := make(map[string]any, len(colIndex))
	empty := true
	for name, idx := range colIndex {
		val := ""
		if idx < len(rec) {
			val = strings.TrimSpace(rec[idx])
		}
		if val != "" {
			empty = false
		}
		row[name] = val
	}
	return row, !empty
}
