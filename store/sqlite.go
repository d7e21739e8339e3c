package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	log "github.com/golang/glog"
	_ "modernc.org/sqlite"

	"github.com/bobonovski/fastlda/model"
)

// SQLite keeps every saved run in one database, keyed by run id.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	m INTEGER NOT NULL,
	v INTEGER NOT NULL,
	k INTEGER NOT NULL,
	beta REAL NOT NULL,
	saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alpha (
	run_id TEXT NOT NULL,
	k INTEGER NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY(run_id, k),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS topic_counts (
	run_id TEXT NOT NULL,
	k INTEGER NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, k),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS word_topic_counts (
	run_id TEXT NOT NULL,
	v INTEGER NOT NULL,
	k INTEGER NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, v, k),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Save stores the snapshot, replacing any earlier save of the same run.
func (s *SQLite) Save(ctx context.Context, snap *model.Snapshot) error {
	if snap.RunID == "" {
		return fmt.Errorf("store: snapshot without run id")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// foreign_keys is per connection, so children are cleared explicitly
	for _, table := range []string{"alpha", "topic_counts", "word_topic_counts"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, snap.RunID); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, snap.RunID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, m, v, k, beta, saved_at) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.RunID, snap.M, snap.V, snap.K, snap.Beta, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	if err := insertRows(ctx, tx, `INSERT INTO alpha (run_id, k, value) VALUES (?, ?, ?)`,
		len(snap.Alpha), func(i int) []any {
			return []any{snap.RunID, i, snap.Alpha[i]}
		}); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, `INSERT INTO topic_counts (run_id, k, count) VALUES (?, ?, ?)`,
		len(snap.TopicsCount), func(i int) []any {
			return []any{snap.RunID, i, snap.TopicsCount[i]}
		}); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, `INSERT INTO word_topic_counts (run_id, v, k, count) VALUES (?, ?, ?, ?)`,
		len(snap.WordsTopicsCount), func(i int) []any {
			e := snap.WordsTopicsCount[i]
			return []any{snap.RunID, e.V, e.K, e.Count}
		}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Infof("saved run %s (%d word topic counts)", snap.RunID, len(snap.WordsTopicsCount))
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, n int, row func(i int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i += 1 {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return err
		}
	}
	return nil
}

// Load reads run id, or the most recently created run when id is
// empty. Run ids sort by creation time.
func (s *SQLite) Load(ctx context.Context, id string) (*model.Snapshot, error) {
	snap := &model.Snapshot{}

	var row *sql.Row
	if id == "" {
		row = s.db.QueryRowContext(ctx, `SELECT id, m, v, k, beta FROM runs ORDER BY id DESC LIMIT 1`)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT id, m, v, k, beta FROM runs WHERE id = ?`, id)
	}
	err := row.Scan(&snap.RunID, &snap.M, &snap.V, &snap.K, &snap.Beta)
	if errors.Is(err, sql.ErrNoRows) {
		if id == "" {
			return nil, fmt.Errorf("%w: no saved runs", ErrModelNotFound)
		}
		return nil, fmt.Errorf("%w: run %s", ErrModelNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if snap.K <= 0 || snap.V <= 0 {
		return nil, fmt.Errorf("%w: bad shape V=%d K=%d", ErrCorruptModel, snap.V, snap.K)
	}

	snap.Alpha = make([]float64, snap.K)
	snap.TopicsCount = make([]int, snap.K)

	err = queryRows(ctx, s.db,
		func(rows *sql.Rows) error {
			var k int
			var a float64
			if err := rows.Scan(&k, &a); err != nil {
				return err
			}
			if k < 0 || k >= snap.K {
				return fmt.Errorf("%w: alpha for topic %d", ErrCorruptModel, k)
			}
			snap.Alpha[k] = a
			return nil
		}, `SELECT k, value FROM alpha WHERE run_id = ? ORDER BY k`, snap.RunID)
	if err != nil {
		return nil, err
	}

	err = queryRows(ctx, s.db,
		func(rows *sql.Rows) error {
			var k, c int
			if err := rows.Scan(&k, &c); err != nil {
				return err
			}
			if k < 0 || k >= snap.K {
				return fmt.Errorf("%w: count for topic %d", ErrCorruptModel, k)
			}
			snap.TopicsCount[k] = c
			return nil
		}, `SELECT k, count FROM topic_counts WHERE run_id = ? ORDER BY k`, snap.RunID)
	if err != nil {
		return nil, err
	}

	err = queryRows(ctx, s.db,
		func(rows *sql.Rows) error {
			var e model.WordTopicCount
			if err := rows.Scan(&e.V, &e.K, &e.Count); err != nil {
				return err
			}
			snap.WordsTopicsCount = append(snap.WordsTopicsCount, e)
			return nil
		}, `SELECT v, k, count FROM word_topic_counts WHERE run_id = ? ORDER BY v, k`, snap.RunID)
	if err != nil {
		return nil, err
	}

	return checked(snap)
}

// Runs lists the saved run ids, oldest first.
func (s *SQLite) Runs(ctx context.Context) ([]string, error) {
	var ids []string
	err := queryRows(ctx, s.db,
		func(rows *sql.Rows) error {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		}, `SELECT id FROM runs ORDER BY id`)
	return ids, err
}

func queryRows(ctx context.Context, db *sql.DB, scan func(rows *sql.Rows) error, query string, args ...any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
