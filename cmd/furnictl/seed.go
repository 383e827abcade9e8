package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/drstein77/furniturepredictor/internal/dbkeeper"
	"github.com/drstein77/furniturepredictor/internal/logger"
	"github.com/drstein77/furniturepredictor/internal/models"
)

func seedCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dsn := fs.String("d", os.Getenv("DATABASE_URI"), "database connection string")
	logLevel := fs.String("l", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" {
		return errors.New("seed: database connection string is required")
	}

	log, err := logger.NewLogger(*logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	kp, err := dbkeeper.NewDBKeeper(ctx, func() string { return *dsn }, log)
	if err != nil {
		return err
	}
	defer kp.Close()

	added, err := kp.SeedInventory(ctx, models.DefaultInventory())
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "inventory seeded: %d added, %d already present\n", added, len(models.DefaultInventory())-added)
	return nil
}
