package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env は環境変数から読む接続先と秘密情報です。
type Env struct {
	GASBase       string
	MMBase        string
	MMBasePublic  string
	MMRUT         string
	MMRUTFallback string
	MMToken       string
	SheetsAPIURL  string
	Addr          string
	DBPath        string
}

// LoadDotEnv は .env を読み込みます。既に設定されている環境変数は上書きしません。ファイルが無いのは正常です。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ReadEnv は現在の環境変数から Env を作ります。
func ReadEnv() Env {
	return Env{
		GASBase:       getenv("GAS_BASE", ""),
		MMBase:        getenv("VITE_MM_BASE", ""),
		MMBasePublic:  getenv("VITE_MM_BASE_PUBLIC", ""),
		MMRUT:         getenv("MM_RUT", ""),
		MMRUTFallback: getenv("VITE_MM_RUT", ""),
		MMToken:       getenv("MANAGERMAS_TOKEN", ""),
		SheetsAPIURL:  getenv("VITE_SHEETS_API_URL", ""),
		Addr:          getenv("SCMDASH_ADDR", ":8080"),
		DBPath:        getenv("SCMDASH_DB", "./scmdash.db"),
	}
}

// ManagerMasBase はサーバ側のベースURLを優先し、無ければ公開用のものを返します。
func (e Env) ManagerMasBase() string {
	if e.MMBase != "" {
		return e.MMBase
	}
	return e.MMBasePublic
}

// ManagerMasRUT は MM_RUT を優先し、無ければ VITE_MM_RUT を返します。
func (e Env) ManagerMasRUT() string {
	if e.MMRUT != "" {
		return e.MMRUT
	}
	return e.MMRUTFallback
}
