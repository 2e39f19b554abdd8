package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/database"
	"github.com/lectern-ai/lectern/internal/docsource"
	"github.com/lectern-ai/lectern/internal/service"
)

// IngestCmd returns the one-shot ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the course corpus",
		Long:  "Run a single ingest pass over the docs directory or an S3 bucket and exit",
		RunE:  runIngest,
	}

	cmd.Flags().Bool("from-s3", false, "Read course scripts from the configured S3 bucket instead of the docs directory")
	cmd.Flags().String("prefix", "", "Object key prefix when reading from S3")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("LECTERN_OPENAI_API_KEY is required")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

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

	var source service.DocumentSource
	fromS3, _ := cmd.Flags().GetBool("from-s3")
	if fromS3 {
		if !cfg.HasS3() {
			return fmt.Errorf("S3 is not configured: set LECTERN_S3_ENDPOINT, LECTERN_S3_ACCESS_KEY_ID and LECTERN_S3_SECRET_ACCESS_KEY")
		}
		prefix, _ := cmd.Flags().GetString("prefix")
		source, err = docsource.NewS3Source(ctx, docsource.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			Prefix:          prefix,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 source: %w", err)
		}
	} else {
		source = docsource.NewDirSource(cfg.DocsDir)
	}

	result, err := app.ingest.IngestAll(ctx, source)
	if err != nil {
		return err
	}

	log.Printf("ingest: %d courses added (%d chunks), %d skipped, %d failed",
		result.CoursesAdded, result.ChunksAdded, result.Skipped, result.Failed)
	return nil
}
