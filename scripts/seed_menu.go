package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ohbang/internal/database"
	"ohbang/internal/export"
	"ohbang/internal/models"
	"ohbang/internal/store"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedPath = flag.String("seed", "", "optional YAML menu to load before export")
		dbPath   = flag.String("db", "./data/menu.db", "path to sqlite db")
		outDir   = flag.String("out", "exports", "directory for the xlsx export")
	)
	flag.Parse()

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	menuStore := store.NewMenuStore(db, nil, &logger)

	if *seedPath != "" {
		data, err := os.ReadFile(*seedPath)
		if err != nil {
			return fmt.Errorf("read seed: %w", err)
		}
		// yaml.v3 maps the lowercased field names, so the remote shape loads as is
		var seed models.MenuDocument
		if err = yaml.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("parse seed: %w", err)
		}
		if err := menuStore.ClearAll(ctx); err != nil {
			return err
		}
		if err := menuStore.InsertAll(ctx, models.ToRecords(seed.Menu)); err != nil {
			return err
		}
		logger.Info().Int("items", len(seed.Menu)).Msg("seeded menu")
	}

	records, err := menuStore.All(ctx)
	if err != nil {
		return err
	}

	path, err := export.SaveMenu(*outDir, records, time.Now())
	if err != nil {
		return err
	}
	logger.Info().Str("file_path", path).Int("items", len(records)).Msg("menu exported")
	return nil
}
