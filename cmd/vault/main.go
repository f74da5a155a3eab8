package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dumbdevss/vault-app/internal/aggregator"
	"github.com/dumbdevss/vault-app/internal/api"
	"github.com/dumbdevss/vault-app/internal/catalog"
	"github.com/dumbdevss/vault-app/internal/config"
	"github.com/dumbdevss/vault-app/internal/database"
	"github.com/dumbdevss/vault-app/internal/export"
	"github.com/dumbdevss/vault-app/internal/history"
	"github.com/dumbdevss/vault-app/internal/indexer"
	"github.com/dumbdevss/vault-app/internal/portfolio"
	"github.com/dumbdevss/vault-app/internal/quote"
	"github.com/dumbdevss/vault-app/internal/swap"
	"github.com/dumbdevss/vault-app/internal/wallet"
	"github.com/dumbdevss/vault-app/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const clientTimeout = 30 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "vault",
		Usage: "token swap engine: catalog, quotes, swap execution and portfolio reports",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API with the catalog refresh worker",
				Action: runServe,
			},
			{
				Name:  "export",
				Usage: "value a wallet's portfolio and write a one-off report",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "wallet", Usage: "wallet address to value", Required: true},
					&cli.StringFlag{Name: "format", Usage: "csv, xlsx or sheets", Value: "csv"},
					&cli.StringFlag{Name: "out", Usage: "output file (default stdout)"},
				},
				Action: runExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// services is the dependency graph shared by both commands.
type services struct {
	catalog   *catalog.Service
	portfolio *portfolio.Service
	engine    *quote.Engine
	agg       *aggregator.Client
}

func buildServices(cfg config.Config) *services {
	agg := aggregator.NewClient(cfg.AggregatorURL, cfg.AggregatorAPIKey, cfg.ChainID, clientTimeout)
	idx := indexer.NewClient(cfg.IndexerURL, clientTimeout)

	store := catalog.NewStore()
	cat := catalog.NewService(agg, idx, store)

	return &services{
		catalog:   cat,
		portfolio: portfolio.NewService(cat, store),
		engine:    quote.NewEngine(agg, store, cfg.QuoteTimeout),
		agg:       agg,
	}
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	svcs := buildServices(cfg)

	// Swap history is optional: without a database the API still quotes and
	// executes, it just cannot persist or list past swaps.
	var swapRepo history.Repository
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		migrationsSub, err := fs.Sub(migrationsFS, "migrations")
		if err != nil {
			return fmt.Errorf("creating migrations sub-fs: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		swapRepo = history.NewPgRepository(pool)
	} else {
		slog.Warn("DATABASE_URL not set, swap history disabled")
	}

	executor := swap.NewExecutor(svcs.agg, svcs.catalog.Store(), svcs.catalog, wallet.None{}, swapRepo)

	catalogWorker := worker.NewCatalogWorker(svcs.catalog, cfg.CatalogRefreshInterval)
	go catalogWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, swap endpoint is unprotected")
	}

	srv := api.NewServer(cfg.HTTPPort, svcs.catalog, svcs.engine, executor, svcs.portfolio, swapRepo, cfg.AdminAPIKey,
		cfg.QuoteDebounce, cfg.QuoteRefreshInterval)

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runExport(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()
	svcs := buildServices(cfg)

	if _, err := svcs.catalog.LoadCatalog(ctx); err != nil {
		return fmt.Errorf("loading token catalog: %w", err)
	}

	p, err := svcs.portfolio.Value(ctx, c.String("wallet"))
	if err != nil {
		return fmt.Errorf("valuing portfolio: %w", err)
	}

	format := c.String("format")
	if format == "sheets" {
		if cfg.SheetsSpreadsheetID == "" || cfg.SheetsCredentialsJSON == "" {
			return errors.New("sheets export requires SHEETS_SPREADSHEET_ID and SHEETS_CREDENTIALS_JSON")
		}
		writer, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.SheetsCredentialsJSON)
		if err != nil {
			return err
		}
		return writer.Write(ctx, p)
	}

	var out io.Writer = os.Stdout
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "csv":
		return export.NewCSVWriter(out).Write(ctx, p)
	case "xlsx":
		return export.NewXLSXWriter(out).Write(ctx, p)
	default:
		return fmt.Errorf("unsupported format %q, expected csv, xlsx or sheets", format)
	}
}
