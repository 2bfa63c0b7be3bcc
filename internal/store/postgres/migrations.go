package postgres

import (
	"cmp"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationLockID serialises console instances migrating the same database.
const migrationLockID = 0x67636c7562 // "gclub"

type migration struct {
	version int
	name    string
	content string
}

// RunMigrations applies the embedded migrations/<version>_<name>.sql files
// that are not yet recorded in schema_migrations. All pending files run in
// one transaction holding an advisory lock.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return fmt.Errorf("lock migrations: %w", mapPostgresError(err))
		}
		if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
			return fmt.Errorf("create schema_migrations: %w", mapPostgresError(err))
		}

		rows, _ := tx.Query(ctx, `SELECT version FROM schema_migrations`)
		applied, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return fmt.Errorf("read schema_migrations: %w", mapPostgresError(err))
		}

		pending := pendingMigrations(migrations, applied)
		for _, m := range pending {
			if _, err := tx.Exec(ctx, m.content); err != nil {
				return fmt.Errorf("apply %s: %w", m.name, mapPostgresError(err))
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name,
			); err != nil {
				return fmt.Errorf("record %s: %w", m.name, mapPostgresError(err))
			}
			log.Info().Int("version", m.version).Str("name", m.name).Msg("migration applied")
		}

		log.Debug().Int("pending", len(pending)).Int("applied", len(applied)).Msg("migrations up to date")
		return nil
	})
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	names, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		base := path.Base(name)
		prefix, _, _ := strings.Cut(base, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s has no numeric version prefix", base)
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", base, err)
		}
		migrations = append(migrations, migration{version: version, name: base, content: string(content)})
	}

	slices.SortFunc(migrations, func(a, b migration) int { return cmp.Compare(a.version, b.version) })

	for i := 1; i < len(migrations); i++ {
		if migrations[i].version == migrations[i-1].version {
			return nil, fmt.Errorf("migrations %s and %s share version %d",
				migrations[i-1].name, migrations[i].name, migrations[i].version)
		}
	}

	return migrations, nil
}

func pendingMigrations(all []migration, applied []int) []migration {
	var pending []migration
	for _, m := range all {
		if !slices.Contains(applied, m.version) {
			pending = append(pending, m)
		}
	}
	return pending
}
