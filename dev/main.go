package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	devenv "siiau-backend/dev/env"
)

func create(recreate bool) error {
	root, err := devenv.GetWorkspaceRoot()
	if err != nil {
		return err
	}

	state := filepath.Join(root, "dev", ".state")
	if recreate {
		err = os.RemoveAll(state)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll(state, 0777)
	if err != nil {
		return err
	}

	err = CreateConfigFiles(root)
	if err != nil {
		return err
	}
	err = CreateEmptyServiceDBs()
	if err != nil {
		return err
	}
	PrintConfigLocations(root)

	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(*recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
