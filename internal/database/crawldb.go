package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/ruthless/internal/model"
)

// DBFileName is the SQLite database file created inside Options.Dir.
const DBFileName = "ruthless.db"

// pendingPredicate selects the crawl frontier. Every query that feeds the
// scheduler must use it so terminal pages are never handed out again.
const pendingPredicate = "fetched_at IS NULL AND failed_at IS NULL"

// PageDB is the durable page store. It is safe for concurrent use.
type PageDB struct {
	// db is the underlying SQL connection pool.
	db *sql.DB

	// dialect holds the backend specific schema and error mapping.
	dialect dialect

	// location is the database file path (SQLite) or a redacted DSN (PostgreSQL).
	location string

	logger *slog.Logger
}

// Options configures Open.
type Options struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string

	// Dir is the directory holding the SQLite file. Ignored for PostgreSQL.
	Dir string

	// DSN is the PostgreSQL connection string, in URL or key=value form.
	DSN string

	// CreateIfNotExists creates the SQLite file or the PostgreSQL database
	// when missing. The schema is always created if absent.
	CreateIfNotExists bool

	// EnableWAL turns on SQLite write-ahead logging.
	EnableWAL bool

	// ConnectRetries is how many times a failing initial ping is retried.
	ConnectRetries int

	// RetryDelay is the initial backoff between ping attempts.
	RetryDelay time.Duration

	// MaxOpenConns caps the PostgreSQL pool. SQLite always uses one connection.
	MaxOpenConns int

	// Logger receives connection diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		Driver:            DriverSQLite,
		CreateIfNotExists: true,
		EnableWAL:         true,
		ConnectRetries:    3,
		RetryDelay:        500 * time.Millisecond,
		MaxOpenConns:      8,
	}
}

// Open connects to the configured backend and ensures the schema exists.
func Open(ctx context.Context, opts Options) (*PageDB, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var pdb *PageDB
	switch d.name {
	case DriverPostgres:
		pdb, err = openPostgres(ctx, opts)
	default:
		pdb, err = openSQLite(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	if err := pdb.createTables(ctx); err != nil {
		_ = pdb.db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	opts.Logger.Debug("page store opened", "driver", d.name, "location", pdb.location)
	return pdb, nil
}

// openSQLite opens the database file under opts.Dir.
func openSQLite(ctx context.Context, opts Options) (*PageDB, error) {
	dbPath := filepath.Join(opts.Dir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(opts.Dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"}
	if opts.EnableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return newPageDB(db, sqliteDialect, dbPath, opts.Logger), nil
}

// newPageDB wraps an existing connection pool. Tests use it with sqlmock.
func newPageDB(db *sql.DB, d dialect, location string, logger *slog.Logger) *PageDB {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageDB{
		db:       db,
		dialect:  d,
		location: location,
		logger:   logger,
	}
}

// Close closes the database connection.
func (p *PageDB) Close() error {
	return p.db.Close()
}

// Driver returns the backend name.
func (p *PageDB) Driver() string {
	return p.dialect.name
}

// Location returns the SQLite path or the redacted PostgreSQL DSN.
func (p *PageDB) Location() string {
	return p.location
}

// createTables creates the schema if it doesn't exist.
func (p *PageDB) createTables(ctx context.Context) error {
	for _, stmt := range p.dialect.schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertPage inserts a pending page and returns its id. The page's ID field
// is updated too. A (url, tag) conflict returns model.ErrDuplicatePage and
// leaves the existing row untouched.
func (p *PageDB) InsertPage(ctx context.Context, page *model.Page) (int64, error) {
	query := p.dialect.rebind(`
	INSERT INTO pages (url, tag, depth, parent_id)
	VALUES (?, ?, ?, ?)
	RETURNING id
	`)

	var id int64
	err := p.db.QueryRowContext(ctx, query,
		page.URL,
		page.Tag,
		page.Depth,
		nullableID(page.ParentID),
	).Scan(&id)
	if err != nil {
		if p.dialect.isUniqueViolation(err) {
			return 0, fmt.Errorf("insert %s [%s]: %w", page.URL, page.Tag, model.ErrDuplicatePage)
		}
		return 0, fmt.Errorf("failed to insert page: %w", err)
	}

	page.ID = id
	return id, nil
}

// UpdateSeedDepth forces the depth of an existing (url, tag) row. It is the
// one operation allowed to lower a depth, used when an operator re-seeds a
// previously discovered URL.
func (p *PageDB) UpdateSeedDepth(ctx context.Context, url, tag string, depth int) error {
	query := p.dialect.rebind(`UPDATE pages SET depth = ? WHERE url = ? AND tag = ?`)

	result, err := p.db.ExecContext(ctx, query, depth, url, tag)
	if err != nil {
		return fmt.Errorf("failed to update seed depth: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update seed depth: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update seed depth %s [%s]: %w", url, tag, model.ErrPageNotFound)
	}
	return nil
}

// MarkFetched stores the page content and moves the page to the fetched state.
func (p *PageDB) MarkFetched(ctx context.Context, id int64, content string) error {
	query := p.dialect.rebind(`
	UPDATE pages SET fetched_at = CURRENT_TIMESTAMP, content = ?, content_hash = ?
	WHERE id = ? AND ` + pendingPredicate)

	return p.markTerminal(ctx, "fetched", query, content, model.HashContent(content), id)
}

// MarkFailed stores the failure reason and moves the page to the failed state.
func (p *PageDB) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := p.dialect.rebind(`
	UPDATE pages SET failed_at = CURRENT_TIMESTAMP, error = ?
	WHERE id = ? AND ` + pendingPredicate)

	return p.markTerminal(ctx, "failed", query, reason, id)
}

// markTerminal runs a conditional terminal update and maps "no row changed"
// to model.ErrPageNotPending.
func (p *PageDB) markTerminal(ctx context.Context, state, query string, args ...any) error {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark page %s: %w", state, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark page %s: %w", state, err)
	}
	if n == 0 {
		return fmt.Errorf("mark page %s: %w", state, model.ErrPageNotPending)
	}
	return nil
}

// PendingDepthHistogram returns the number of pending pages per depth,
// ascending by depth. An empty result means the frontier is exhausted.
func (p *PageDB) PendingDepthHistogram(ctx context.Context) ([]model.DepthCount, error) {
	query := `
	SELECT depth, COUNT(*) FROM pages
	WHERE ` + pendingPredicate + `
	GROUP BY depth
	ORDER BY depth ASC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending depths: %w", err)
	}
	defer rows.Close()

	var histogram []model.DepthCount
	for rows.Next() {
		var bucket model.DepthCount
		if err := rows.Scan(&bucket.Depth, &bucket.Count); err != nil {
			return nil, fmt.Errorf("failed to scan pending depth: %w", err)
		}
		histogram = append(histogram, bucket)
	}

	return histogram, rows.Err()
}

// PendingPageAtOffset returns the pending page at offset among pending pages
// of the given depth, ordered by id. It returns nil, nil when the offset is
// past the end, which happens when other writers change the frontier between
// the histogram query and this one.
func (p *PageDB) PendingPageAtOffset(ctx context.Context, depth int, offset int64) (*model.Page, error) {
	query := p.dialect.rebind(`
	SELECT id, url, tag, depth, parent_id, created_at FROM pages
	WHERE ` + pendingPredicate + ` AND depth = ?
	ORDER BY id
	LIMIT 1 OFFSET ?
	`)

	var page model.Page
	var parentID sql.NullInt64
	var createdAt nullTime

	err := p.db.QueryRowContext(ctx, query, depth, offset).Scan(
		&page.ID,
		&page.URL,
		&page.Tag,
		&page.Depth,
		&parentID,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select pending page: %w", err)
	}

	if parentID.Valid {
		page.ParentID = &parentID.Int64
	}
	if createdAt.Time != nil {
		page.CreatedAt = *createdAt.Time
	}
	return &page, nil
}

// GetPage retrieves a page by url and tag, including its content.
// It returns model.ErrPageNotFound when no row matches.
func (p *PageDB) GetPage(ctx context.Context, url, tag string) (*model.Page, error) {
	query := p.dialect.rebind(`
	SELECT id, url, tag, depth, parent_id, content, content_hash, error, created_at, fetched_at, failed_at
	FROM pages
	WHERE url = ? AND tag = ?
	`)

	var page model.Page
	var parentID sql.NullInt64
	var content, contentHash, failure sql.NullString
	var createdAt, fetchedAt, failedAt nullTime

	err := p.db.QueryRowContext(ctx, query, url, tag).Scan(
		&page.ID,
		&page.URL,
		&page.Tag,
		&page.Depth,
		&parentID,
		&content,
		&contentHash,
		&failure,
		&createdAt,
		&fetchedAt,
		&failedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get page %s [%s]: %w", url, tag, model.ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	if parentID.Valid {
		page.ParentID = &parentID.Int64
	}
	page.Content = stringPtr(content)
	page.ContentHash = stringPtr(contentHash)
	page.Error = stringPtr(failure)
	if createdAt.Time != nil {
		page.CreatedAt = *createdAt.Time
	}
	page.FetchedAt = fetchedAt.Time
	page.FailedAt = failedAt.Time

	return &page, nil
}

// ChildrenOf returns the pages discovered by parentID, ordered by id.
// Content is not loaded.
func (p *PageDB) ChildrenOf(ctx context.Context, parentID int64) ([]model.Page, error) {
	query := p.dialect.rebind(`
	SELECT id, url, tag, depth, parent_id, created_at FROM pages
	WHERE parent_id = ?
	ORDER BY id
	`)

	rows, err := p.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []model.Page
	for rows.Next() {
		var page model.Page
		var parent sql.NullInt64
		var createdAt nullTime
		if err := rows.Scan(&page.ID, &page.URL, &page.Tag, &page.Depth, &parent, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		if parent.Valid {
			page.ParentID = &parent.Int64
		}
		if createdAt.Time != nil {
			page.CreatedAt = *createdAt.Time
		}
		children = append(children, page)
	}

	return children, rows.Err()
}

// TagSummaries returns per-tag page counts ordered by tag.
func (p *PageDB) TagSummaries(ctx context.Context) ([]model.TagSummary, error) {
	query := `
	SELECT tag,
		SUM(CASE WHEN ` + pendingPredicate + ` THEN 1 ELSE 0 END),
		SUM(CASE WHEN fetched_at IS NOT NULL THEN 1 ELSE 0 END),
		SUM(CASE WHEN failed_at IS NOT NULL THEN 1 ELSE 0 END),
		MIN(CASE WHEN ` + pendingPredicate + ` THEN depth END)
	FROM pages
	GROUP BY tag
	ORDER BY tag
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tag summaries: %w", err)
	}
	defer rows.Close()

	var summaries []model.TagSummary
	for rows.Next() {
		var s model.TagSummary
		var minDepth sql.NullInt64
		if err := rows.Scan(&s.Tag, &s.Pending, &s.Fetched, &s.Failed, &minDepth); err != nil {
			return nil, fmt.Errorf("failed to scan tag summary: %w", err)
		}
		if minDepth.Valid {
			d := int(minDepth.Int64)
			s.MinPendingDepth = &d
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// FrontierReport combines the tag summaries and the pending histogram.
func (p *PageDB) FrontierReport(ctx context.Context) (*model.FrontierReport, error) {
	tags, err := p.TagSummaries(ctx)
	if err != nil {
		return nil, err
	}
	histogram, err := p.PendingDepthHistogram(ctx)
	if err != nil {
		return nil, err
	}
	return &model.FrontierReport{
		GeneratedAt:   time.Now(),
		Tags:          tags,
		PendingDepths: histogram,
	}, nil
}

// nullableID converts an optional id to a SQL parameter.
func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
