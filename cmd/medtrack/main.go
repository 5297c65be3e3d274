package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/app"
	"github.com/dmitrijs2005/medtrack/internal/buildinfo"
	"github.com/dmitrijs2005/medtrack/internal/config"
	"github.com/dmitrijs2005/medtrack/internal/export"
	"github.com/dmitrijs2005/medtrack/internal/localstore"
	"github.com/dmitrijs2005/medtrack/internal/logging"
	"github.com/dmitrijs2005/medtrack/internal/remote"
	"github.com/dmitrijs2005/medtrack/internal/tracker"

	_ "modernc.org/sqlite"
	_ "time/tzdata"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	// The first non-flag argument selects the command; flags are parsed by
	// the config package.
	cmd := "serve"
	if len(os.Args) > 1 && !strings.HasPrefix(os.Args[1], "-") {
		cmd = os.Args[1]
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	switch cmd {
	case "serve":
		runServe(ctx, cfg)
	case "migrate":
		runMigrate(ctx, cfg)
	case "export":
		runExport(ctx, cfg)
	default:
		log.Fatalf("unknown command %q (expected serve, migrate or export)", cmd)
	}
}

func runServe(ctx context.Context, cfg *config.Config) {
	a, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	a.Run(ctx)
}

func runMigrate(ctx context.Context, cfg *config.Config) {
	_, db, err := remote.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	if err := remote.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Println("migrations applied")
}

// runExport loads the current collections, writes a snapshot file and
// optionally uploads it to the backup bucket.
func runExport(ctx context.Context, cfg *config.Config) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	cache, err := localstore.InitDatabase(ctx, cfg.CacheDSN)
	if err != nil {
		log.Fatalf("cache init error: %v", err)
	}

	client, db, err := remote.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("remote init error: %v", err)
	}
	defer db.Close()

	tr := tracker.New(client, cache, logger, tracker.Config{ResyncAfter: cfg.ResyncAfter})
	tr.Startup(ctx)

	data, err := tr.ExportData()
	if err != nil {
		log.Fatalf("export error: %v", err)
	}

	now := time.Now()
	path, err := export.WriteSnapshot(cfg.ExportDir, data, now)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("snapshot written to %s", path)

	if cfg.S3Backup {
		uploader := export.NewS3Uploader(export.S3Config{
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
		})
		key := export.BackupKey(now)
		if err := uploader.Upload(ctx, key, data); err != nil {
			log.Fatalf("backup upload error: %v", err)
		}
		log.Printf("snapshot uploaded to s3://%s/%s", cfg.S3Bucket, key)
	}
}
