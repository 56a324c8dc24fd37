// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

//go:embed migrations/*
var migrationFiles embed.FS

// MigrateUp applies every pending migration for rawURL's backend, the same
// iofs-embedded-source pattern the teacher uses for sqlite3/mysql.
func MigrateUp(rawURL string) error {
	backend := Driver(rawURL)

	switch backend {
	case "postgres":
		d, err := iofs.New(migrationFiles, "migrations/postgres")
		if err != nil {
			return fmt.Errorf("repository: migrate source: %w", err)
		}
		m, err := migrate.NewWithSourceInstance("iofs", d, rawURL)
		if err != nil {
			return fmt.Errorf("repository: migrate init: %w", err)
		}
		defer m.Close()
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("repository: migrate up: %w", err)
		}
	case "sqlite3":
		d, err := iofs.New(migrationFiles, "migrations/sqlite3")
		if err != nil {
			return fmt.Errorf("repository: migrate source: %w", err)
		}
		m, err := migrate.NewWithSourceInstance("iofs", d, "sqlite3://"+withForeignKeys(sqlitePath(rawURL)))
		if err != nil {
			return fmt.Errorf("repository: migrate init: %w", err)
		}
		defer m.Close()
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("repository: migrate up: %w", err)
		}
	default:
		return fmt.Errorf("repository: unsupported backend %q", backend)
	}

	log.Infof("schema migrations applied for %s backend", backend)
	return nil
}
