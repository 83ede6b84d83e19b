package main

import (
	"database/sql"
	"flag"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/semillero-erp/semillero-erp/internal/app"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version")
	dir := flag.String("dir", "migrations", "goose migrations directory")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	sqlDB, err := sql.Open("pgx", cfg.PGDSN)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("close database", slog.Any("error", err))
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		logger.Error("set dialect", slog.Any("error", err))
		os.Exit(1)
	}

	switch *cmd {
	case "up":
		err = goose.Up(sqlDB, *dir)
	case "down":
		err = goose.Down(sqlDB, *dir)
	case "status":
		err = goose.Status(sqlDB, *dir)
	case "version":
		err = goose.Version(sqlDB, *dir)
	default:
		logger.Error("unknown command", slog.String("cmd", *cmd))
		os.Exit(1)
	}
	if err != nil {
		logger.Error("migration failed", slog.String("cmd", *cmd), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migration complete", slog.String("cmd", *cmd))
}
