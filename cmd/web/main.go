package main

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"bikedash/internal/app"
)

//go:embed templates/*.html
var templateFiles embed.FS

// templates returns the page templates rooted at the templates directory.
func templates() (fs.FS, error) {
	return fs.Sub(templateFiles, "templates")
}

func main() {
	// A .env file is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to read .env file", slog.String("error", err.Error()))
	}

	pages, err := templates()
	if err != nil {
		slog.Error("Failed to open embedded templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(pages)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
