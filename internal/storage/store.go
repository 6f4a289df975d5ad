package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jmorgan/contentindex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidTableName is returned for table names that are not plain identifiers
	ErrInvalidTableName = errors.New("invalid table name")
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// metaModelKey and metaDimKey are the index_meta rows that record what
// the content table was built for.
const (
	metaModelKey = "model_name"
	metaDimKey   = "vector_dim"
)

// Store is the embedded vector store. One SQLite table holds chunk
// text, metadata, and embedding vectors as little-endian float32 blobs.
type Store struct {
	db    *sql.DB
	path  string
	table string
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// Open creates a Store against the database at path. The table name
// must be a plain identifier because it is interpolated into DDL.
func Open(path, table string) (*Store, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db, path: path, table: table}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Table returns the content table name.
func (s *Store) Table() string {
	return s.table
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) createTableSQL() string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    chunk_id TEXT PRIMARY KEY,
    slug TEXT NOT NULL,
    category TEXT NOT NULL,
    title TEXT NOT NULL,
    publish_date TEXT,
    tags TEXT,
    url TEXT,
    content TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    start_char INTEGER NOT NULL,
    end_char INTEGER NOT NULL,
    word_count INTEGER NOT NULL,
    section_title TEXT,
    vector BLOB NOT NULL,
    vector_dim INTEGER NOT NULL,
    model_name TEXT NOT NULL,
    model_version TEXT,
    created_at TIMESTAMP NOT NULL,
    processing_time_ms REAL DEFAULT 0,
    content_hash TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_%s_slug ON %s(category, slug);
CREATE INDEX IF NOT EXISTS idx_%s_category ON %s(category);
`, s.table, s.table, s.table, s.table, s.table)
}

// EnsureSchema brings the content table in line with the given model
// and dimension. When the table was built for a different model or
// dimension, or its column layout no longer matches this code, it is
// dropped and recreated. That rebuild is destructive and is logged; a
// full reindex must follow.
func (s *Store) EnsureSchema(ctx context.Context, modelName string, vectorDim int) error {
	storedModel, _ := s.metaValue(ctx, metaModelKey)
	storedDim, _ := s.metaValue(ctx, metaDimKey)

	wantDim := fmt.Sprintf("%d", vectorDim)
	if storedModel != "" && (storedModel != modelName || storedDim != wantDim) {
		log.Printf("storage: index built for model=%s dim=%s, want model=%s dim=%s; rebuilding table %s",
			storedModel, storedDim, modelName, wantDim, s.table)
		if err := s.dropTable(ctx); err != nil {
			return err
		}
	}

	if _, err := s.db.ExecContext(ctx, s.createTableSQL()); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	// A probe insert catches tables left behind by older layouts. On
	// failure the table is rebuilt once; persistent failure is fatal.
	if err := s.probe(ctx, vectorDim); err != nil {
		log.Printf("storage: table %s failed schema probe (%v); rebuilding", s.table, err)
		if err := s.dropTable(ctx); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, s.createTableSQL()); err != nil {
			return fmt.Errorf("recreate table %s: %w", s.table, err)
		}
		if err := s.probe(ctx, vectorDim); err != nil {
			return fmt.Errorf("table %s unusable after rebuild: %w", s.table, err)
		}
	}

	if err := s.setMeta(ctx, metaModelKey, modelName); err != nil {
		return err
	}
	return s.setMeta(ctx, metaDimKey, wantDim)
}

// probe inserts and deletes a sentinel row to verify the column layout.
func (s *Store) probe(ctx context.Context, vectorDim int) error {
	if vectorDim <= 0 {
		vectorDim = 1
	}
	rec := types.IndexRecord{
		ChunkID:     "__schema_probe__",
		Slug:        "__probe__",
		Category:    "blog",
		Title:       "probe",
		Content:     "probe",
		Vector:      make([]float32, vectorDim),
		VectorDim:   vectorDim,
		ModelName:   "probe",
		CreatedAt:   time.Now().UTC(),
		ContentHash: "probe",
	}
	if err := s.insertOne(ctx, s.db, &rec); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE chunk_id = ?", s.table), rec.ChunkID)
	return err
}

// tableExists reports whether the content table has been created yet.
// Search, stats and clear degrade to empty results before the first
// EnsureSchema instead of failing.
func (s *Store) tableExists(ctx context.Context) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", s.table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) dropTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table)); err != nil {
		return fmt.Errorf("drop table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) metaValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Insert writes records inside one transaction, replacing rows that
// share a chunk_id. Records that fail validation are skipped and
// counted, never fatal; vector_dim is corrected from the vector before
// writing.
func (s *Store) Insert(ctx context.Context, records []types.IndexRecord) (inserted, skipped int, err error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range records {
		rec := &records[i]
		if verr := rec.Validate(); verr != nil {
			log.Printf("storage: skipping record %s: %v", rec.ChunkID, verr)
			skipped++
			continue
		}
		if ierr := s.insertOne(ctx, tx, rec); ierr != nil {
			err = fmt.Errorf("insert %s: %w", rec.ChunkID, ierr)
			return 0, 0, err
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return inserted, skipped, nil
}

func (s *Store) insertOne(ctx context.Context, q querier, rec *types.IndexRecord) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (
			chunk_id, slug, category, title, publish_date, tags, url,
			content, chunk_index, start_char, end_char, word_count, section_title,
			vector, vector_dim, model_name, model_version,
			created_at, processing_time_ms, content_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.table)

	_, err = q.ExecContext(ctx, query,
		rec.ChunkID, rec.Slug, string(rec.Category), rec.Title, rec.PublishDate, string(tags), rec.URL,
		rec.Content, rec.ChunkIndex, rec.StartChar, rec.EndChar, rec.WordCount, rec.SectionTitle,
		serializeVector(rec.Vector), rec.VectorDim, rec.ModelName, rec.ModelVersion,
		rec.CreatedAt, rec.ProcessingTimeMS, rec.ContentHash,
	)
	return err
}

// DeleteBySlug removes every chunk of one document.
func (s *Store) DeleteBySlug(ctx context.Context, category types.Category, slug string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE category = ? AND slug = ?", s.table),
		string(category), slug)
	if err != nil {
		return 0, fmt.Errorf("delete %s/%s: %w", category, slug, err)
	}
	return result.RowsAffected()
}

// Clear removes all rows, or all rows of one category when category is
// non-empty. It returns the number of rows removed.
func (s *Store) Clear(ctx context.Context, category string) (int64, error) {
	if ok, err := s.tableExists(ctx); err != nil {
		return 0, err
	} else if !ok {
		return 0, nil
	}

	var (
		result sql.Result
		err    error
	)
	if category == "" {
		result, err = s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", s.table))
	} else {
		result, err = s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE category = ?", s.table), category)
	}
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the total number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&n)
	return n, err
}

// ContentHashes returns the stored content hash per document, keyed by
// "category/slug". The first chunk of each document carries the hash
// that decides whether a non-forced reindex can skip it.
func (s *Store) ContentHashes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT category, slug, content_hash FROM %s WHERE chunk_index = 0", s.table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hashes := make(map[string]string)
	for rows.Next() {
		var category, slug, hash string
		if err := rows.Scan(&category, &slug, &hash); err != nil {
			return nil, err
		}
		hashes[category+"/"+slug] = hash
	}
	return hashes, rows.Err()
}

// CategoryStats summarizes one category's share of the index.
type CategoryStats struct {
	Documents int64 `json:"documents"`
	Chunks    int64 `json:"chunks"`
}

// TableStats summarizes the whole index.
type TableStats struct {
	TotalChunks    int64                    `json:"total_chunks"`
	TotalDocuments int64                    `json:"total_documents"`
	Categories     map[string]CategoryStats `json:"categories"`
	ModelName      string                   `json:"model_name"`
	VectorDim      int                      `json:"vector_dim"`
	DBSizeMB       float64                  `json:"db_size_mb"`
	LastIndexedAt  time.Time                `json:"last_indexed_at"`
}

// Stats reports chunk and document counts, per-category breakdowns,
// the model the index was built with, and the database file size.
func (s *Store) Stats(ctx context.Context) (*TableStats, error) {
	stats := &TableStats{Categories: make(map[string]CategoryStats)}

	if ok, err := s.tableExists(ctx); err != nil {
		return nil, err
	} else if !ok {
		return stats, nil
	}

	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*), COUNT(DISTINCT category || '/' || slug) FROM %s", s.table)).
		Scan(&stats.TotalChunks, &stats.TotalDocuments)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT category, COUNT(DISTINCT slug), COUNT(*) FROM %s GROUP BY category", s.table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var category string
		var cs CategoryStats
		if err := rows.Scan(&category, &cs.Documents, &cs.Chunks); err != nil {
			return nil, err
		}
		stats.Categories[category] = cs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.TotalChunks > 0 {
		var last sql.NullTime
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT MAX(created_at) FROM %s", s.table)).Scan(&last); err == nil && last.Valid {
			stats.LastIndexedAt = last.Time
		}
	}

	if model, err := s.metaValue(ctx, metaModelKey); err == nil {
		stats.ModelName = model
	}
	if dim, err := s.metaValue(ctx, metaDimKey); err == nil {
		fmt.Sscanf(dim, "%d", &stats.VectorDim)
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DBSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	return stats, nil
}

// scanColumns is the column list shared by every row scan.
const scanColumns = `chunk_id, slug, category, title, publish_date, tags, url,
	content, chunk_index, start_char, end_char, word_count, section_title,
	vector, vector_dim, model_name, model_version, created_at, processing_time_ms, content_hash`

func scanRecord(rows *sql.Rows) (*types.IndexRecord, error) {
	var rec types.IndexRecord
	var category, tagsJSON string
	var sectionTitle, modelVersion, publishDate, url sql.NullString
	var vectorBlob []byte

	err := rows.Scan(
		&rec.ChunkID, &rec.Slug, &category, &rec.Title, &publishDate, &tagsJSON, &url,
		&rec.Content, &rec.ChunkIndex, &rec.StartChar, &rec.EndChar, &rec.WordCount, &sectionTitle,
		&vectorBlob, &rec.VectorDim, &rec.ModelName, &modelVersion,
		&rec.CreatedAt, &rec.ProcessingTimeMS, &rec.ContentHash,
	)
	if err != nil {
		return nil, err
	}

	rec.Category = types.Category(category)
	rec.Vector = deserializeVector(vectorBlob)
	if sectionTitle.Valid {
		rec.SectionTitle = sectionTitle.String
	}
	if modelVersion.Valid {
		rec.ModelVersion = modelVersion.String
	}
	if publishDate.Valid {
		rec.PublishDate = publishDate.String
	}
	if url.Valid {
		rec.URL = url.String
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
			rec.Tags = nil
		}
	}
	return &rec, nil
}

// Filters narrows search to a slice of the index.
type Filters struct {
	Category string
}

// whereClause centralizes predicate construction. Every condition is
// parameterized; no caller-provided value is ever interpolated into SQL.
func (f Filters) whereClause(conds []string, args []interface{}) ([]string, []interface{}) {
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	return conds, args
}

func buildWhere(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
