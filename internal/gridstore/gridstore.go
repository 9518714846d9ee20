// Package gridstore caches forward-pass grids in SQLite, keyed by a digest
// of everything that determines the grid.
package gridstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/num/quat"
	_ "modernc.org/sqlite"

	"github.com/samcharles93/molgrid/pkg/gridfile"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Stats summarises the cache contents.
type Stats struct {
	Entries int64 `json:"entries"`
	Bytes   int64 `json:"bytes"`
	Hits    int64 `json:"hits"`
}

// Open opens or creates the cache database at path. ":memory:" gives a
// private in-memory cache.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init grid cache schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Key digests a dense forward pass: configuration, channel count, atoms,
// channel assignments and rotation.
func Key(cfg gridmaker.Config, channels int, atoms []gridmaker.AtomInfo, chans []int, q quat.Number) string {
	h := sha256.New()
	w := func(v any) { _ = binary.Write(h, binary.LittleEndian, v) }
	w(cfg.Resolution)
	w(cfg.Dimension)
	w(cfg.RadiusMultiple)
	w(cfg.Binary)
	w(cfg.Spherize)
	w(cfg.Center)
	w(int64(channels))
	w([4]float64{q.Real, q.Imag, q.Jmag, q.Kmag})
	w(int64(len(atoms)))
	for i, a := range atoms {
		w(a)
		w(int64(chans[i]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached grid for key. ok is false on a miss.
func (s *Store) Get(ctx context.Context, key string) (hdr gridfile.Header, data []float32, ok bool, err error) {
	var payload []byte
	err = s.db.QueryRowContext(ctx, `SELECT payload FROM grids WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return hdr, nil, false, nil
	}
	if err != nil {
		return hdr, nil, false, fmt.Errorf("query grid %s: %w", key, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return hdr, nil, false, fmt.Errorf("grid %s: %w", key, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return hdr, nil, false, fmt.Errorf("grid %s: %w", key, err)
	}
	f, err := gridfile.Decode(raw)
	if err != nil {
		return hdr, nil, false, fmt.Errorf("grid %s: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE grids SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		return hdr, nil, false, fmt.Errorf("record hit %s: %w", key, err)
	}
	return *f.Header, f.Float32s(), true, nil
}

// Put stores a grid under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key string, hdr gridfile.Header, data []float32) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := gridfile.Write(zw, hdr, data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO grids (key, channels, dim, size_bytes, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, key, hdr.Channels, hdr.Dim, buf.Len(), buf.Bytes(), s.now().Unix())
	if err != nil {
		return fmt.Errorf("store grid %s: %w", key, err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), COALESCE(SUM(hits), 0) FROM grids
	`).Scan(&st.Entries, &st.Bytes, &st.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("grid cache stats: %w", err)
	}
	return st, nil
}

// Prune removes entries created before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM grids WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune grid cache: %w", err)
	}
	return res.RowsAffected()
}
