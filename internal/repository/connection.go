// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

var (
	connOnce     sync.Once
	connInstance *DB
)

// DB wraps the live sqlx handle plus the backend name migrations were run
// against, mirroring the teacher's DBConnection/driver-switch shape.
type DB struct {
	Handle  *sqlx.DB
	Backend string
}

// Driver returns "postgres" or "sqlite3" depending on rawURL's scheme. A
// DATABASE_URL of "postgres://..." or "postgresql://..." selects Postgres;
// anything else (including bare file paths and "sqlite3://...") selects
// sqlite3, the in-process/test backend.
func Driver(rawURL string) string {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return "postgres"
	default:
		return "sqlite3"
	}
}

// sqlitePath strips a "sqlite3://" or "file:" scheme prefix, leaving a path
// go-sqlite3 understands directly.
func sqlitePath(rawURL string) string {
	for _, prefix := range []string{"sqlite3://", "file:"} {
		if strings.HasPrefix(rawURL, prefix) {
			return strings.TrimPrefix(rawURL, prefix)
		}
	}
	return rawURL
}

// withForeignKeys appends the _foreign_keys=on DSN parameter, joining with
// "&" when dsn already carries a query string (e.g. "file:x?mode=memory").
func withForeignKeys(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// Connect opens the singleton store connection for rawURL, registering a
// sqlhooks-wrapped driver so --loglevel debug traces every statement, exactly
// the way the teacher wraps its sqlite3 driver.
func Connect(rawURL string) (*DB, error) {
	var err error
	connOnce.Do(func() {
		backend := Driver(rawURL)
		var handle *sqlx.DB

		switch backend {
		case "postgres":
			sql.Register("postgresWithHooks", sqlhooks.Wrap(&pq.Driver{}, &Hooks{}))
			handle, err = sqlx.Open("postgresWithHooks", rawURL)
			if err != nil {
				return
			}
			handle.SetConnMaxLifetime(3 * time.Minute)
			handle.SetMaxOpenConns(10)
			handle.SetMaxIdleConns(10)
		case "sqlite3":
			sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
			handle, err = sqlx.Open("sqlite3WithHooks", withForeignKeys(sqlitePath(rawURL)))
			if err != nil {
				return
			}
			// sqlite3 does not tolerate concurrent writers; serialize.
			handle.SetMaxOpenConns(1)
		}

		connInstance = &DB{Handle: handle, Backend: backend}
	})
	if err != nil {
		return nil, fmt.Errorf("repository: connect: %w", err)
	}
	if connInstance == nil {
		return nil, fmt.Errorf("repository: connect: unsupported database url")
	}
	log.Infof("connected to %s store", connInstance.Backend)
	return connInstance, nil
}

// GetConnection returns the already-opened singleton. Callers must Connect
// first; this mirrors the teacher's GetConnection/Fatal-on-uninitialized
// contract but returns an error instead of calling log.Fatal, since store
// callers here run inside testable operations, not only main().
func GetConnection() (*DB, error) {
	if connInstance == nil {
		return nil, fmt.Errorf("repository: connection not initialized")
	}
	return connInstance, nil
}
