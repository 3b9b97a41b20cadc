package parsers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"scmdash/model"
)

func TestParseSheetCSV(t *testing.T) {
	in := "\xEF\xBB\xBFcodigo, producto ,stock\nPC1,Paracetamol,10\n,,\nPC2,\"Ibuprofeno, 400mg\"\n"
	rows, err := ParseSheetCSV(strings.NewReader(in), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.Row{"codigo": "PC1", "producto": "Paracetamol", "stock": "10"}, rows[0])
	assert.Equal(t, model.Row{"codigo": "PC2", "producto": "Ibuprofeno, 400mg", "stock": ""}, rows[1])
}

func TestParseSheetCSVWindows1252Semicolon(t *testing.T) {
	// Windows-1252 で保存された "categoría;año"
	in := []byte("categor\xEDa;a\xF1o\nvacunas;2025\n")
	rows, err := ParseSheetCSV(bytes.NewReader(in), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "vacunas", rows[0]["categoría"])
	assert.Equal(t, "2025", rows[0]["año"])
}

func TestParseSheetCSVEmpty(t *testing.T) {
	_, err := ParseSheetCSV(strings.NewReader(""), zap.NewNop())
	assert.Error(t, err)

	_, err = ParseSheetCSV(strings.NewReader(" , \n1,2\n"), zap.NewNop())
	assert.Error(t, err)
}

func TestParseSheetXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"codigo", "unidades_envase"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"PC1", 30}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"PC2"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := ParseSheetXLSX(&buf, "")
	require.NoError(t, err)
	assert.Equal(t, []model.Row{
		{"codigo": "PC1", "unidades_envase": "30"},
		{"codigo": "PC2", "unidades_envase": ""},
	}, rows)
}

func TestParseSheetFileByExtension(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "demanda.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("codigo\nPC9\n"), 0o644))
	rows, err := ParseSheetFile(csvPath, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	odsPath := filepath.Join(dir, "x.ods")
	require.NoError(t, os.WriteFile(odsPath, []byte("x"), 0o644))
	_, err = ParseSheetFile(odsPath, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
