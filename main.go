package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scmdash/automation"
	"scmdash/config"
	"scmdash/dashboard"
	"scmdash/database"
	"scmdash/loader"
	"scmdash/managermas"
	"scmdash/render"
	"scmdash/sheets"
)

const (
	upstreamTimeout = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

var (
	debugMode  bool
	configPath string
	envFile    string
	browserBin string
)

// app は起動時に組み立てる依存一式です。
type app struct {
	env     config.Env
	cfg     config.Config
	logger  *zap.Logger
	db      *sqlx.DB
	sheets  *sheets.Client
	backend sheets.Backend
	mm      *managermas.Client
	pdf     *automation.PDFRenderer
}

func newLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if debugMode {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

// newApp は環境変数・設定ファイル・DBを読み込み、シートの読み書き先を決めます。
// requireSheets が true の場合は Apps Script のURLが無いとエラーにします。
func newApp(requireSheets bool) (*app, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	env := config.ReadEnv()

	config.SetFilePath(configPath)
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := database.Open(env.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.InitDatabase(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger, db: db}
	httpClient := &http.Client{Timeout: upstreamTimeout}

	if env.SheetsAPIURL != "" {
		a.sheets, err = sheets.NewClient(env.SheetsAPIURL, httpClient, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	switch cfg.SheetBackend {
	case config.BackendMirror:
		a.backend = database.NewMirrorStore(db)
	default:
		if a.sheets == nil {
			requireSheets = true
		} else {
			a.backend = a.sheets
		}
	}
	if requireSheets && a.sheets == nil {
		db.Close()
		return nil, errors.New("VITE_SHEETS_API_URL is not set")
	}

	a.mm = managermas.NewClient(managermas.Options{
		BaseURL:     env.ManagerMasBase(),
		Token:       env.MMToken,
		RUT:         env.ManagerMasRUT(),
		HTTPClient:  httpClient,
		FanOutLimit: cfg.FanOutLimit,
	}, logger)
	a.pdf = automation.NewPDFRenderer(browserBin, logger)
	return a, nil
}

func (a *app) close() {
	a.db.Close()
	a.logger.Sync()
}

// syncSource は同期元です。URL未設定なら nil インターフェースを返します。
func (a *app) syncSource() loader.SyncSource {
	if a.sheets == nil {
		return nil
	}
	return a.sheets
}

func (a *app) dashboardServer() *dashboard.Server {
	opts := dashboard.Options{
		Backend:      a.backend,
		Language:     render.ParseLanguage(a.cfg.Language),
		SalesTimeout: time.Duration(a.cfg.SalesTimeoutSeconds) * time.Second,
		Logger:       a.logger,
	}
	if a.pdf != nil {
		opts.PDF = a.pdf
	}
	if a.mm != nil && a.mm.Configured() {
		opts.Sales = a.mm
	}
	return dashboard.New(opts)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if !a.mm.Configured() {
				a.logger.Warn("ManagerMas is not configured, sales and stock endpoints will fail")
			}
			if a.cfg.MirrorSyncSchedule != "" {
				if src := a.syncSource(); src != nil {
					c, err := loader.StartSchedule(a.cfg.MirrorSyncSchedule, func(ctx context.Context) {
						loader.Sync(ctx, a.db, src, a.cfg.MirrorTables, a.logger)
					}, a.logger)
					if err != nil {
						return err
					}
					defer c.Stop()
				} else {
					a.logger.Warn("mirror sync schedule ignored, VITE_SHEETS_API_URL is not set")
				}
			}

			r := mux.NewRouter()
			SetupRoutes(r, a)

			srv := &http.Server{
				Addr:              a.env.Addr,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("starting server",
					zap.String("addr", a.env.Addr),
					zap.String("backend", a.cfg.SheetBackend),
					zap.String("language", a.cfg.Language))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scmdash",
		Short:         "Supply-chain dashboard backend for tenders, purchase orders, imports and demand",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&configPath, "config", "./scmdash_config.json", "dashboard settings file")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&browserBin, "browser", "", "Chrome/Chromium executable used for PDF export")

	root.AddCommand(newServeCmd(), newImportCmd(), newSyncCmd(), newReportCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
