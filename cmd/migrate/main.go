package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/llmwatch/llmwatch/internal/config"
	"github.com/llmwatch/llmwatch/internal/repository/postgres"
	"github.com/llmwatch/llmwatch/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Database.Driver == "sqlite" {
		// The sqlite schema is applied automatically on open
		if _, err := postgres.New(cfg.Database); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to migrate sqlite database: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("SQLite schema is up to date")
		return
	}

	store, err := postgres.New(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Println("Connected to database successfully")

	_, err = store.DB.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			executed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrations table: %v\n", err)
		os.Exit(1)
	}

	names, err := migrationFiles()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list migrations: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Println("No migration files found")
		return
	}

	for _, name := range names {
		var count int
		if err := store.DB.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE name = $1", name).Scan(&count); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to check migration status: %v\n", err)
			os.Exit(1)
		}
		if count > 0 {
			fmt.Printf("Skipping %s (already executed)\n", name)
			continue
		}

		content, err := fs.ReadFile(migrations.GetFS(), name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read migration %s: %v\n", name, err)
			os.Exit(1)
		}

		fmt.Printf("Running migration: %s\n", name)
		if _, err := store.DB.Exec(string(content)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to execute migration %s: %v\n", name, err)
			os.Exit(1)
		}
		if _, err := store.DB.Exec("INSERT INTO schema_migrations (name) VALUES ($1)", name); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to record migration %s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("Migration %s completed\n", name)
	}

	fmt.Println("All migrations completed successfully")
}

func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrations.GetFS(), ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".sql" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
