package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/oracle/*.sql
var oracleMigrations embed.FS

// RunMigrations brings the schema up to date for the connection's driver.
func RunMigrations(db *sqlx.DB, log *zap.Logger) error {
	switch db.DriverName() {
	case DriverOracle:
		return runOracleMigrations(db, log)
	default:
		return runSQLiteMigrations(db, log)
	}
}

func runSQLiteMigrations(db *sqlx.DB, log *zap.Logger) error {
	source, err := iofs.New(sqliteMigrations, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db.DB, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info("Migrations completed", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// runOracleMigrations executes every *.up.sql file in name order. Oracle
// takes one statement per Exec, so files are split on lines ending in ';'.
// Objects that already exist are skipped.
func runOracleMigrations(db *sqlx.DB, log *zap.Logger) error {
	files, err := fs.Glob(oracleMigrations, "migrations/oracle/*.up.sql")
	if err != nil {
		return fmt.Errorf("could not list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := oracleMigrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", file, err)
		}
		for _, stmt := range SplitStatements(string(content)) {
			if _, err := db.Exec(stmt); err != nil {
				if strings.Contains(err.Error(), "ORA-00955") || strings.Contains(err.Error(), "ORA-01408") {
					log.Debug("Skipping existing object", zap.String("file", file))
					continue
				}
				return fmt.Errorf("could not execute migration %s: %w", file, err)
			}
		}
		log.Info("Executed migration", zap.String("file", file))
	}
	return nil
}

// SplitStatements splits a SQL script on statement-terminating semicolons
// and drops comment-only lines.
func SplitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSpace(current.String())
			stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
