package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	devenv "siiau-backend/dev/env"
	"siiau-backend/dev/templates"
	"siiau-backend/pkg/migrations"
	"siiau-backend/services/subscriptions/db"
)

// writeTemplate writes contents to root/name unless the file already exists.
func writeTemplate(root, name string, contents []byte) error {
	path := filepath.Join(root, name)
	_, err := os.Stat(path)
	if err == nil {
		fmt.Println("keeping existing", path)
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	fmt.Println("writing", path)
	return os.WriteFile(path, contents, 0644)
}

func CreateConfigFiles(root string) error {
	err := writeTemplate(root, "config.json5", templates.Config)
	if err != nil {
		return err
	}
	err = writeTemplate(root, "curriculum.yaml", templates.Curriculum)
	if err != nil {
		return err
	}
	return writeTemplate(root, "telemetry.example.json5", templates.Telemetry)
}

func createDb(filename, schema string) error {
	path, err := devenv.ResolvePath(filepath.Join(devenv.StatePrefix, filename))
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	database, err := migrations.OpenAndMigrateDB(schema, path)
	if err != nil {
		return err
	}
	return database.Close()
}

func CreateEmptyServiceDBs() error {
	return createDb("subscriptions.db", db.Schema)
}

func PrintConfigLocations(root string) {
	slog.Info(
		"edit config.json5 (term, center, major) before running the server, rename telemetry.example.json5 to telemetry.json5 to export traces and metrics",
		"root", root,
	)
}
