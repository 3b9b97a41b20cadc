package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/robfig/cron/v3"

	"scmdash/model"
)

// 表示言語
const (
	LanguageES = "es"
	LanguageEN = "en"
)

// シートの読み書き先
const (
	BackendHTTP   = "http"
	BackendMirror = "mirror"
)

const (
	defaultSalesTimeoutSeconds = 30
	defaultFanOutLimit         = 4
)

// Config は画面から変更できるダッシュボード設定です。
type Config struct {
	Language            string   `json:"language"`
	SalesTimeoutSeconds int      `json:"salesTimeoutSeconds"`
	FanOutLimit         int      `json:"fanOutLimit"`
	SheetBackend        string   `json:"sheetBackend"`
	MirrorSyncSchedule  string   `json:"mirrorSyncSchedule"`
	MirrorTables        []string `json:"mirrorTables"`
}

var (
	cfg = Defaults()
	mu  sync.RWMutex

	configFilePath = "./scmdash_config.json"
)

// Defaults は既定の設定を返します。
func Defaults() Config {
	return Config{
		Language:            LanguageES,
		SalesTimeoutSeconds: defaultSalesTimeoutSeconds,
		FanOutLimit:         defaultFanOutLimit,
		SheetBackend:        BackendHTTP,
		MirrorTables:        slices.Clone(model.AllTables),
	}
}

// SetFilePath は設定ファイルの場所を変更します。
func SetFilePath(path string) {
	mu.Lock()
	defer mu.Unlock()
	configFilePath = path
}

func applyDefaults(c *Config) {
	d := Defaults()
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.SalesTimeoutSeconds <= 0 {
		c.SalesTimeoutSeconds = d.SalesTimeoutSeconds
	}
	if c.FanOutLimit <= 0 {
		c.FanOutLimit = d.FanOutLimit
	}
	if c.SheetBackend == "" {
		c.SheetBackend = d.SheetBackend
	}
	if len(c.MirrorTables) == 0 {
		c.MirrorTables = d.MirrorTables
	}
}

// Validate は値の範囲を確認します。空の項目は既定値で埋める前提なので問題にしません。
func (c Config) Validate() error {
	if c.Language != "" && c.Language != LanguageES && c.Language != LanguageEN {
		return fmt.Errorf("language must be %q or %q", LanguageES, LanguageEN)
	}
	if c.SheetBackend != "" && c.SheetBackend != BackendHTTP && c.SheetBackend != BackendMirror {
		return fmt.Errorf("sheetBackend must be %q or %q", BackendHTTP, BackendMirror)
	}
	if c.SalesTimeoutSeconds < 0 || c.FanOutLimit < 0 {
		return fmt.Errorf("salesTimeoutSeconds and fanOutLimit must not be negative")
	}
	if c.MirrorSyncSchedule != "" {
		if _, err := cron.ParseStandard(c.MirrorSyncSchedule); err != nil {
			return fmt.Errorf("mirrorSyncSchedule: %w", err)
		}
	}
	for _, t := range c.MirrorTables {
		if !slices.Contains(model.AllTables, t) {
			return fmt.Errorf("unknown mirror table %q", t)
		}
	}
	return nil
}

// LoadConfig は設定ファイルを読み込みます。ファイルが無ければ既定値を使います。
func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	file, err := os.ReadFile(configFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = Defaults()
			return cfg, nil
		}
		return Config{}, err
	}

	var tempCfg Config
	if err := json.Unmarshal(file, &tempCfg); err != nil {
		return Config{}, err
	}
	if err := tempCfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", configFilePath, err)
	}
	applyDefaults(&tempCfg)
	cfg = tempCfg
	return cfg, nil
}

// SaveConfig は設定を検証して保存します。
func SaveConfig(newCfg Config) (Config, error) {
	if err := newCfg.Validate(); err != nil {
		return Config{}, err
	}
	applyDefaults(&newCfg)

	mu.Lock()
	defer mu.Unlock()

	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return Config{}, err
	}
	if err := os.WriteFile(configFilePath, file, 0644); err != nil {
		return Config{}, err
	}
	cfg = newCfg
	return cfg, nil
}

// GetConfig は現在の設定を返します。
func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	c := cfg
	c.MirrorTables = slices.Clone(cfg.MirrorTables)
	return c
}
