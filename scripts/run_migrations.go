package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/prelovedtoys/marketplace-api/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Ping database: %v", err)
	}

	files, err := migrationFiles("migrations", direction)
	if err != nil {
		log.Fatalf("Collect migrations: %v", err)
	}

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Read migration file %s: %v", path, err)
		}

		log.Printf("Running migration: %s", filepath.Base(path))
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatalf("Execute migration %s: %v", path, err)
		}
	}

	log.Printf("Successfully ran %d migration(s) %s", len(files), direction)
}

// migrationFiles returns the .up.sql or .down.sql files in lexical order; down
// migrations run in reverse.
func migrationFiles(dir, direction string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	suffix := fmt.Sprintf(".%s.sql", direction)
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	return files, nil
}
