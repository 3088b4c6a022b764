// Package testutil provides an in-memory Artifact Repository for other
// packages' tests, grounded on five82-spindle's internal/queue/store.go
// (modernc.org/sqlite registered as a pure-Go, cgo-free database/sql
// driver) combined with gorm.io/driver/sqlite's Conn-based Dialector, the
// same trick internal/models/db.go uses to hand gorm.Open an already-opened
// *sql.DB rather than letting the mysql driver open its own connection.
package testutil

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/waveCodeSite/aicg/internal/models"
	"github.com/waveCodeSite/aicg/internal/repository"
)

// NewRepository opens a fresh in-memory SQLite database, migrates every
// model, and returns an Artifact Repository backed by it. Each call gets
// its own database: ":memory:" is scoped to the *sql.DB connection, and
// SetMaxOpenConns(1) here keeps that connection from being silently
// recycled into a second, empty in-memory database mid-test.
func NewRepository() (*repository.Repository, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	gormDB, err := gorm.Open(sqlite.Dialector{Conn: db}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	if err := models.Migrate(gormDB); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return repository.New(gormDB, nil), nil
}
