package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jmorgan/contentindex/pkg/types"
)

// VectorHit pairs a stored record with its distance from the query.
type VectorHit struct {
	Record   *types.IndexRecord
	Distance float64
}

// VectorSearch scans candidate rows and ranks them by squared Euclidean
// distance to the query vector, ascending. Rows whose dimension does
// not match the query are skipped. Distance computation happens in Go;
// SQLite only stores and filters.
func (s *Store) VectorSearch(ctx context.Context, query []float32, limit int, filters Filters) ([]VectorHit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		return []VectorHit{}, nil
	}
	if ok, err := s.tableExists(ctx); err != nil {
		return nil, err
	} else if !ok {
		return []VectorHit{}, nil
	}

	conds, args := filters.whereClause(nil, nil)
	sqlQuery := fmt.Sprintf("SELECT %s FROM %s%s", scanColumns, s.table, buildWhere(conds))

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]VectorHit, 0, 256)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if len(rec.Vector) != len(query) {
			continue // dimension mismatch, stale row
		}
		hits = append(hits, VectorHit{
			Record:   rec,
			Distance: squaredDistance(query, rec.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable sort keeps insertion order for equal distances, which in
	// turn keeps results deterministic across runs.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// TextSearch returns rows whose content or title contains at least one
// of the terms. Matching is case-insensitive substring matching;
// scoring and ranking belong to the caller. The LIKE patterns are
// parameterized and escaped so terms can never alter the query shape.
func (s *Store) TextSearch(ctx context.Context, terms []string, limit int, filters Filters) ([]*types.IndexRecord, error) {
	terms = nonEmptyTerms(terms)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty search terms")
	}
	if limit <= 0 {
		return []*types.IndexRecord{}, nil
	}
	if ok, err := s.tableExists(ctx); err != nil {
		return nil, err
	} else if !ok {
		return []*types.IndexRecord{}, nil
	}

	conds, args := filters.whereClause(nil, nil)
	likeCond, likeArgs := likeAnyClause([]string{"content", "title"}, terms)
	conds = append(conds, likeCond)
	args = append(args, likeArgs...)

	sqlQuery := fmt.Sprintf("SELECT %s FROM %s%s LIMIT ?", scanColumns, s.table, buildWhere(conds))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*types.IndexRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// likeAnyClause builds one parameterized OR-group matching any term in
// any of the given columns.
func likeAnyClause(columns, terms []string) (string, []interface{}) {
	conds := make([]string, 0, len(columns)*len(terms))
	args := make([]interface{}, 0, len(columns)*len(terms))
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		for _, col := range columns {
			conds = append(conds, fmt.Sprintf("%s LIKE ? ESCAPE '\\'", col))
			args = append(args, pattern)
		}
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}

// escapeLike escapes LIKE wildcards in a user-supplied term.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

func nonEmptyTerms(terms []string) []string {
	out := terms[:0:0]
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

// squaredDistance computes squared Euclidean distance. For unit
// vectors this stays within [0, 4].
func squaredDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// SquaredDistance is an exported helper for testing
func SquaredDistance(a, b []float32) float64 {
	return squaredDistance(a, b)
}
