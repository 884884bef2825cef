package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"citiescrowl/internal/config"
	"citiescrowl/internal/models"
	"citiescrowl/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	file := flag.String("file", "", "Path to the CSV file to import (defaults to the configured dataset URL)")
	skipHeader := flag.Bool("skip-header", false, "Treat the first CSV row as a header")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DBSource == "" {
		fmt.Println("Error: db_source is not configured")
		os.Exit(1)
	}

	ctx := context.Background()

	cities, err := readCities(ctx, cfg, *file, *skipHeader || cfg.Dataset.SkipHeader)
	if err != nil {
		fmt.Printf("Error reading cities: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Parsed %d records\n", len(cities))

	pool, err := pgxpool.New(ctx, cfg.DBSource)
	if err != nil {
		fmt.Printf("Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.NewRepository(pool)

	if err := repo.CreateSchema(ctx); err != nil {
		fmt.Printf("Error creating table: %v\n", err)
		os.Exit(1)
	}

	n, err := repo.ReplaceCities(ctx, cities)
	if err != nil {
		fmt.Printf("Error inserting records: %v\n", err)
		os.Exit(1)
	}

	// Verify data
	count, err := repo.CountCities(ctx)
	if err != nil {
		fmt.Printf("Error verifying import: %v\n", err)
		os.Exit(1)
	}
	if count != len(cities) {
		fmt.Printf("Error verifying import: record count mismatch: expected %d, got %d\n", len(cities), count)
		os.Exit(1)
	}

	fmt.Printf("Successfully imported %d records\n", n)
}

func readCities(ctx context.Context, cfg config.Config, path string, skipHeader bool) ([]models.City, error) {
	if path == "" {
		fmt.Printf("Starting import from %s\n", cfg.Dataset.URL())
		loader := repository.NewCSVLoader(&http.Client{Timeout: 30 * time.Second}, cfg.Dataset.URL(),
			repository.WithSkipHeader(skipHeader),
			repository.WithMaxTries(cfg.Dataset.MaxRetries),
		)
		return loader.LoadCities(ctx)
	}

	fmt.Printf("Starting import from file: %s\n", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return repository.ParseCities(f, skipHeader)
}
