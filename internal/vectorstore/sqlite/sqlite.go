// Package sqlite persists the vector index in a SQLite database under the
// configured persist directory, one database file per collection. Vectors are
// mirrored in memory for search.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"docqa/internal/domain"
	"docqa/internal/vectorstore/memory"
)

// Storage implements vectorstore.Storage on top of SQLite.
type Storage struct {
	db        *sql.DB
	path      string
	dimension int
	mirror    *memory.Storage
}

// Path returns the database file used for collection under persistDir.
func Path(persistDir, collection string) string {
	return filepath.Join(persistDir, collection+".db")
}

// Open opens or creates the collection database and loads any stored
// vectors. Parent directories are created if they do not exist.
func Open(ctx context.Context, persistDir, collection string) (*Storage, error) {
	if collection == "" {
		return nil, errors.New("collection name is required")
	}
	if err := os.MkdirAll(persistDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create persist directory: %w", err)
	}
	path := Path(persistDir, collection)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	s := &Storage{db: db, path: path, mirror: memory.NewStorage()}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}
	return s, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS nodes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		node_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL
	);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func (s *Storage) load(ctx context.Context) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dimension'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	dim, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid stored dimension %q: %w", raw, err)
	}
	if err := s.mirror.Init(ctx, dim); err != nil {
		return err
	}
	s.dimension = dim

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, title, node_index, text, vector FROM nodes ORDER BY seq`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var (
		nodes   []domain.Node
		vectors [][]float64
	)
	for rows.Next() {
		var (
			n    domain.Node
			blob []byte
		)
		if err := rows.Scan(&n.ID, &n.Source, &n.Title, &n.Index, &n.Text, &blob); err != nil {
			return err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return s.mirror.Upsert(ctx, nodes, vectors)
}

// Dimension returns the stored vector dimension, or 0 for a new collection.
func (s *Storage) Dimension() int { return s.dimension }

// Init resets the collection to the given dimension.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	return s.write(ctx, dimension, nil, nil)
}

// Upsert inserts or replaces nodes in the current collection.
func (s *Storage) Upsert(ctx context.Context, nodes []domain.Node, vectors [][]float64) error {
	if s.dimension == 0 {
		return errors.New("storage not initialized")
	}
	return s.write(ctx, 0, nodes, vectors)
}

// Replace resets the collection to dimension and stores nodes in a single
// transaction. On error the previous collection is left untouched.
func (s *Storage) Replace(ctx context.Context, dimension int, nodes []domain.Node, vectors [][]float64) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	return s.write(ctx, dimension, nodes, vectors)
}

// write runs one transaction. A positive reset dimension drops every
// stored node first; nodes are then checked against the resulting dimension.
func (s *Storage) write(ctx context.Context, reset int, nodes []domain.Node, vectors [][]float64) error {
	if len(nodes) != len(vectors) {
		return errors.New("nodes and vectors length mismatch")
	}
	dim := s.dimension
	if reset > 0 {
		dim = reset
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if reset > 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
			return fmt.Errorf("failed to reset nodes: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES ('dimension', ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			strconv.Itoa(reset)); err != nil {
			return fmt.Errorf("failed to store dimension: %w", err)
		}
	}
	if len(nodes) > 0 {
		if err := insertNodes(ctx, tx, dim, nodes, vectors); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if reset > 0 {
		s.dimension = reset
		if err := s.mirror.Init(ctx, reset); err != nil {
			return err
		}
	}
	if len(nodes) == 0 {
		return nil
	}
	return s.mirror.Upsert(ctx, nodes, vectors)
}

func insertNodes(ctx context.Context, tx *sql.Tx, dim int, nodes []domain.Node, vectors [][]float64) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (id, source, title, node_index, text, vector)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   source = excluded.source, title = excluded.title,
		   node_index = excluded.node_index, text = excluded.text, vector = excluded.vector`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, n := range nodes {
		if len(vectors[i]) != dim {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), dim)
		}
		if _, err := stmt.ExecContext(ctx, n.ID, n.Source, n.Title, n.Index, n.Text, encodeVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to store node %s: %w", n.ID, err)
		}
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.Candidate, error) {
	if s.dimension == 0 {
		return nil, nil
	}
	return s.mirror.Search(ctx, vector, topK)
}

func (s *Storage) Nodes(ctx context.Context) ([]domain.Node, error) {
	return s.mirror.Nodes(ctx)
}

func (s *Storage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
		return fmt.Errorf("failed to clear nodes: %w", err)
	}
	return s.mirror.Clear(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func encodeVector(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
	}
	return buf
}

func decodeVector(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("corrupt vector of %d bytes", len(buf))
	}
	v := make([]float64, len(buf)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return v, nil
}
