package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jakechorley/mass-rota/pkg/db"
)

var memoryDBCounter atomic.Int64

// DB provides database operations using an embedded SQLite file
type DB struct {
	db *gorm.DB

	// locks serializes replacement of the same role on the same mass
	locks db.KeyedMutex
}

var _ db.Database = (*DB)(nil)

// NewDB opens (creating if needed) the SQLite database at path and migrates it.
// An empty path opens a private in-memory database.
func NewDB(path string) (*DB, error) {
	var dsn string
	if path == "" {
		dsn = fmt.Sprintf("file:rota-memory-%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", memoryDBCounter.Add(1))
	} else {
		dir := filepath.Dir(path)
		if _, err := os.Stat(dir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read database dir: %w", err)
			}
			if err := os.MkdirAll(dir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create database dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection keeps the in-memory database alive and avoids SQLITE_BUSY between writers
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	d := &DB{db: gdb}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate() error {
	for _, m := range migrateModels {
		if err := d.db.AutoMigrate(m); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", m, err)
		}
	}
	return nil
}

// Close closes the underlying connection
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
