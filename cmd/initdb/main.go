// initdb applies the SQL migrations to the configured Postgres database.
// Safe to re-run: every statement in the migrations is idempotent.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zatekoja/problem-register/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/problem-register/internal/infrastructure/observability"
	"github.com/zatekoja/problem-register/pkg/config"
)

func main() {
	var migrationsDir string
	flag.StringVar(&migrationsDir, "migrations", "migrations", "Directory containing .sql migration files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pgClient.Close()

	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		log.Fatalf("Failed to read migrations directory: %v", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		log.Fatalf("No .sql files found in %s", migrationsDir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, name := range files {
		path := filepath.Join(migrationsDir, name)
		contents, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		if _, err := pgClient.DB().ExecContext(ctx, string(contents)); err != nil {
			log.Fatalf("Failed to apply %s: %v", name, err)
		}
		log.Printf("Applied %s", name)
	}

	log.Printf("Database %q initialized with the Active_Problems table", cfg.Database.Database)
}
