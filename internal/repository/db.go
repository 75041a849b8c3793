package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the joke database and migrates the comic_segments table.
// Parameters:
//   - cfg: database configuration including driver and DSN.
// Returns:
//   - *gorm.DB: initialized database handle.
//   - error: non-nil if connection or migration fails.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	logger.Info("Initializing joke database with driver %q", cfg.Driver)

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		db, err = initPostgres(cfg, gormConfig)
	case "sqlite":
		db, err = initSQLite(cfg, gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.Driver == "sqlite" && isMemoryDSN(cfg.DSN) {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&domain.JokeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if cfg.Driver == "postgres" && cfg.InstallSearchFunctions {
		if err := InstallSearchFunctions(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

// initPostgres enables pgvector before the vector columns are migrated.
func initPostgres(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	// PreferSimpleProtocol keeps transaction poolers (Supabase port 6543) working
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}
	return db, nil
}

func initSQLite(cfg *config.DatabaseConfig, gormConfig *gorm.Config) (*gorm.DB, error) {
	if !isMemoryDSN(cfg.DSN) {
		dir := filepath.Dir(cfg.DSN)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// InstallSearchFunctions creates (or replaces) the two similarity functions the
// bridge store calls: match_joke_bridges over bridge_embedding and match_jokes
// over content embeddings with a minimum similarity.
func InstallSearchFunctions(db *gorm.DB) error {
	for _, stmt := range []string{matchJokeBridgesSQL, matchJokesSQL} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to install search function: %w", err)
		}
	}
	return nil
}

const matchJokeBridgesSQL = `
CREATE OR REPLACE FUNCTION match_joke_bridges(query_embedding vector, match_count int)
RETURNS TABLE (
	id bigint,
	video_id text,
	searchable_text text,
	bridge_content text,
	meta_tags text,
	similarity float
)
LANGUAGE sql STABLE
AS $$
	SELECT c.id, c.video_id, c.searchable_text, c.bridge_content, c.meta_tags,
	       1 - (c.bridge_embedding <=> query_embedding) AS similarity
	FROM comic_segments c
	WHERE c.bridge_embedding IS NOT NULL
	ORDER BY c.bridge_embedding <=> query_embedding
	LIMIT match_count;
$$`

const matchJokesSQL = `
CREATE OR REPLACE FUNCTION match_jokes(query_embedding vector, match_threshold float, match_count int)
RETURNS TABLE (
	id bigint,
	video_id text,
	searchable_text text,
	bridge_content text,
	meta_tags text,
	similarity float
)
LANGUAGE sql STABLE
AS $$
	SELECT c.id, c.video_id, c.searchable_text, c.bridge_content, c.meta_tags,
	       1 - (c.embedding <=> query_embedding) AS similarity
	FROM comic_segments c
	WHERE c.embedding IS NOT NULL
	  AND 1 - (c.embedding <=> query_embedding) > match_threshold
	ORDER BY c.embedding <=> query_embedding
	LIMIT match_count;
$$`
