// Package postgres implements the catalog repositories on PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/godfreymatagaro/eduability/internal/repository"
	"github.com/godfreymatagaro/eduability/pkg/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(fmt.Sprintf("postgres: embedded migrations: %v", err))
	}
	return sub
}

// Pool is satisfied by *pgxpool.Pool and by pgxmock pools.
type Pool interface {
	database.DBTX
	Ping(ctx context.Context) error
	Close()
}

// Store is the PostgreSQL-backed repository.Store.
type Store struct {
	pool         Pool
	technologies *TechnologyRepository
	reviews      *ReviewRepository
}

var _ repository.Store = (*Store)(nil)

// NewStore creates a store on top of pool.
func NewStore(pool Pool) *Store {
	return &Store{
		pool:         pool,
		technologies: NewTechnologyRepository(pool),
		reviews:      NewReviewRepository(pool),
	}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	return database.RunMigrations(ctx, s.pool, Migrations(), logger)
}

func (s *Store) Technologies() repository.TechnologyRepository { return s.technologies }
func (s *Store) Reviews() repository.ReviewRepository          { return s.reviews }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s as a literal substring.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
