package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	sdkopenai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/api/handlers"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/database"
	"github.com/lectern-ai/lectern/internal/docsource"
	"github.com/lectern-ai/lectern/internal/openai"
	"github.com/lectern-ai/lectern/internal/repository"
	"github.com/lectern-ai/lectern/internal/server"
	"github.com/lectern-ai/lectern/internal/service"
	"github.com/lectern-ai/lectern/internal/telemetry"
	"github.com/lectern-ai/lectern/internal/watcher"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Ingest the course corpus and start the lectern API server",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8000", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-ingest", false, "Skip the corpus ingest pass on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("LECTERN_OPENAI_API_KEY is required")
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	app, err := buildApp(cfg, pool)
	if err != nil {
		return err
	}

	noIngest, _ := cmd.Flags().GetBool("no-ingest")
	if !noIngest {
		source := docsource.NewDirSource(cfg.DocsDir)
		result, err := app.ingest.IngestAll(ctx, source)
		if err != nil {
			log.Printf("startup ingest skipped: %v", err)
		} else {
			log.Printf("ingest: %d courses added (%d chunks), %d skipped, %d failed",
				result.CoursesAdded, result.ChunksAdded, result.Skipped, result.Failed)
		}
	}

	var docsWatcher *watcher.DocsWatcher
	if cfg.WatchDocs {
		docsWatcher = watcher.NewDocsWatcher(cfg.DocsDir, &dirReingester{
			ingest: app.ingest,
			dir:    cfg.DocsDir,
		}, 2*time.Second)
		if err := docsWatcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start docs watcher: %w", err)
		}
	}

	routerCfg := server.RouterConfig{
		QueryHandler:   handlers.NewQueryHandler(app.assistant),
		CoursesHandler: handlers.NewCoursesHandler(app.assistant),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if docsWatcher != nil {
		docsWatcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// app bundles the wired services shared by serve and ingest.
type app struct {
	assistant *service.Assistant
	ingest    *service.IngestService
}

func buildApp(cfg *config.Config, pool *pgxpool.Pool) (*app, error) {
	catalogRepo := repository.NewCatalogRepository(pool)
	contentRepo := repository.NewContentRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: sdkopenai.EmbeddingModel(cfg.EmbeddingModel),
	})

	searchSvc := service.NewSearchService(catalogRepo, contentRepo, client, cfg.MaxResults)
	ingestSvc := service.NewIngestService(catalogRepo, client, txRunner, service.ChunkConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})

	registry := service.NewToolRegistry()
	registry.Register(service.NewSearchTool(searchSvc))

	generator := service.NewGenerator(client, registry)
	sessions := service.NewSessionStore(cfg.MaxHistory)
	assistant := service.NewAssistant(generator, sessions, searchSvc)

	return &app{assistant: assistant, ingest: ingestSvc}, nil
}

// dirReingester adapts the ingest service to the watcher's trigger interface.
type dirReingester struct {
	ingest *service.IngestService
	dir    string
}

func (r *dirReingester) Reingest(ctx context.Context) error {
	result, err := r.ingest.IngestAll(ctx, docsource.NewDirSource(r.dir))
	if err != nil {
		return err
	}
	log.Printf("re-ingest: %d courses added (%d chunks), %d skipped, %d failed",
		result.CoursesAdded, result.ChunksAdded, result.Skipped, result.Failed)
	return nil
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
