package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/lib/pq"
)

// kvPasswordPattern matches password=... in key=value DSNs.
var kvPasswordPattern = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// RedactDSN hides the password of a PostgreSQL DSN for logging.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}
	return kvPasswordPattern.ReplaceAllString(dsn, "${1}xxxxx")
}

// openPostgres connects to PostgreSQL, retrying the initial ping and creating
// the database when it is missing and opts.CreateIfNotExists is set.
func openPostgres(ctx context.Context, opts Options) (*PageDB, error) {
	if opts.DSN == "" {
		return nil, ErrMissingDSN
	}

	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	err = pingWithRetry(ctx, db, opts.ConnectRetries, opts.RetryDelay)
	if err != nil && opts.CreateIfNotExists && pqErrorCode(err) == pgInvalidCatalogName {
		opts.Logger.Info("database does not exist, creating it", "dsn", RedactDSN(opts.DSN))
		if cerr := createDatabase(ctx, opts.DSN); cerr != nil {
			_ = db.Close()
			return nil, cerr
		}
		err = pingWithRetry(ctx, db, opts.ConnectRetries, opts.RetryDelay)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newPageDB(db, postgresDialect, RedactDSN(opts.DSN), opts.Logger), nil
}

// pingWithRetry pings db, retrying transient failures with exponential
// backoff. A missing database is not retried.
func pingWithRetry(ctx context.Context, db *sql.DB, retries int, delay time.Duration) error {
	if retries < 0 {
		retries = 0
	}
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	policy := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool {
			return err != nil && pqErrorCode(err) != pgInvalidCatalogName
		}).
		WithMaxRetries(retries).
		WithBackoff(delay, 10*delay).
		Build()

	var lastErr error
	_, err := failsafe.With[any](policy).WithContext(ctx).Get(func() (any, error) {
		lastErr = db.PingContext(ctx)
		return nil, lastErr
	})
	if err == nil {
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return err
}

// createDatabase connects to the "postgres" maintenance database of the same
// server and creates the database named in dsn.
func createDatabase(ctx context.Context, dsn string) error {
	adminDSN, dbName, err := adminDSNFor(dsn)
	if err != nil {
		return err
	}

	adminDB, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return fmt.Errorf("failed to connect admin database: %w", err)
	}
	defer adminDB.Close()

	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping admin database: %w", err)
	}

	stmt := "CREATE DATABASE " + pq.QuoteIdentifier(dbName)
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		if pqErrorCode(err) == pgDuplicateDatabase {
			return nil
		}
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}
	return nil
}

// adminDSNFor rewrites dsn to target the "postgres" database and returns the
// original database name. Both URL and key=value forms are accepted.
func adminDSNFor(dsn string) (string, string, error) {
	if u, err := url.Parse(dsn); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		dbName := strings.TrimPrefix(u.Path, "/")
		if dbName == "" {
			return "", "", errors.New("dsn missing database name")
		}
		if strings.EqualFold(dbName, "postgres") {
			return "", "", fmt.Errorf("target database %q cannot be auto-created", dbName)
		}
		u.Path = "/postgres"
		return u.String(), dbName, nil
	}

	fields := strings.Fields(dsn)
	dbName := ""
	for i, f := range fields {
		if name, ok := strings.CutPrefix(f, "dbname="); ok {
			dbName = strings.Trim(name, "'")
			fields[i] = "dbname=postgres"
		}
	}
	if dbName == "" {
		return "", "", errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return "", "", fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	return strings.Join(fields, " "), dbName, nil
}
