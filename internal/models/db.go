package models

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenMySQL mirrors the teacher's models.InitDB (database/sql pool +
// gorm.Open over the same *sql.DB), generalized to take the DSN as a
// parameter instead of a package-level config global, and to return errors
// instead of calling log.Fatalf — startup-time fatal handling belongs to
// cmd/aicg, not this package.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return gormDB, nil
}

// AllTables lists every entity for AutoMigrate, used by `aicg migrate`.
func AllTables() []interface{} {
	return []interface{}{
		&Project{}, &Chapter{},
		&Sentence{}, &SentenceAsset{},
		&Script{}, &Scene{}, &Shot{}, &Transition{},
		&Character{}, &APIKey{},
		&GenerationHistory{},
		&Job{}, &Task{},
		&VideoTask{},
	}
}

// Migrate applies schema migrations via GORM AutoMigrate, the systems-language
// stand-in for the teacher's doc/sql/StoryToVideo.sql exec-on-boot approach —
// generalized into an idempotent, explicit operation the `migrate` CLI
// subcommand invokes (spec.md §6) rather than something main() does silently
// on every boot.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllTables()...)
}
