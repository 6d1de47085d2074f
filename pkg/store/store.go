// Package store persists ngram models in a SQL database. Models are saved
// as whole-graph snapshots: one row of metadata and one row per edge,
// written in the model's observation order so that a loaded model samples
// exactly like the one that was saved.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/drosera/pkg/ngram"
)

// ModelInfo holds the stored metadata for a model: its row ID, name, and
// order.
type ModelInfo struct {
	Id    int
	Name  string
	Order int
}

// SetupSchema initializes the tables the store needs. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS ngram_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		// edge_id ordering preserves the model's observation order across
		// a save/load round trip.
		schemaEdges = `
CREATE TABLE IF NOT EXISTS ngram_edges (
    edge_id INTEGER PRIMARY KEY,
    model_id INTEGER NOT NULL,
    prefix TEXT NOT NULL,
    suffix TEXT NOT NULL,
    freq INTEGER NOT NULL DEFAULT 1,
    UNIQUE (model_id, prefix, suffix)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}
	if _, err = tx.Exec(schemaEdges); err != nil {
		return fmt.Errorf("could not create edges schema: %w", err)
	}

	return tx.Commit()
}

// Store reads and writes ngram models in a database. It holds prepared
// statements for the hot paths and should be closed when no longer needed.
type Store struct {
	db             *sql.DB
	stmtGetModel   *sql.Stmt
	stmtGetModels  *sql.Stmt
	stmtUpsertName *sql.Stmt
	stmtGetEdges   *sql.Stmt
	stmtCountEdges *sql.Stmt
	logger         *slog.Logger
}

// NewStore creates a Store over db, pre-compiling its SQL statements. The
// schema must already be in place (see SetupSchema).
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetModel, err := db.Prepare(`SELECT model_id, model_order FROM ngram_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetModels, err := db.Prepare(`SELECT model_id, model_name, model_order FROM ngram_models;`)
	if err != nil {
		return nil, err
	}

	stmtUpsertName, err := db.Prepare(`INSERT INTO ngram_models (model_name, model_order) VALUES (?, ?) ON CONFLICT(model_name) DO UPDATE SET model_order = excluded.model_order RETURNING model_id;`)
	if err != nil {
		return nil, err
	}

	stmtGetEdges, err := db.Prepare(`SELECT prefix, suffix, freq FROM ngram_edges WHERE model_id = ? ORDER BY edge_id;`)
	if err != nil {
		return nil, err
	}

	stmtCountEdges, err := db.Prepare(`SELECT COUNT(*) FROM ngram_edges WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:             db,
		stmtGetModel:   stmtGetModel,
		stmtGetModels:  stmtGetModels,
		stmtUpsertName: stmtUpsertName,
		stmtGetEdges:   stmtGetEdges,
		stmtCountEdges: stmtCountEdges,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases the Store's prepared statements.
func (s *Store) Close() {
	_ = s.stmtGetModel.Close()
	_ = s.stmtGetModels.Close()
	_ = s.stmtUpsertName.Close()
	_ = s.stmtGetEdges.Close()
	_ = s.stmtCountEdges.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Info retrieves the stored metadata for a single model by name. It returns
// sql.ErrNoRows if no such model exists.
func (s *Store) Info(ctx context.Context, name string) (ModelInfo, error) {
	var id, order int
	if err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&id, &order); err != nil {
		return ModelInfo{}, err
	}
	return ModelInfo{Id: id, Name: name, Order: order}, nil
}

// List retrieves metadata for every stored model, keyed by name.
func (s *Store) List(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var info ModelInfo
		if err = rows.Scan(&info.Id, &info.Name, &info.Order); err != nil {
			return nil, err
		}
		models[info.Name] = info
	}
	return models, rows.Err()
}

// Save writes a model under the given name, replacing any previous edges
// stored for it. The write is transactional: a failed save leaves the
// previous contents intact. Saving is a snapshot, not a merge; saving the
// same model twice stores the same counts, and merging belongs to
// ngram.Model.Update before saving.
func (s *Store) Save(ctx context.Context, name string, m *ngram.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	if err = tx.StmtContext(ctx, s.stmtUpsertName).QueryRowContext(ctx, name, m.Order()).Scan(&modelID); err != nil {
		return fmt.Errorf("could not upsert model '%s': %w", name, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM ngram_edges WHERE model_id = ?`, modelID); err != nil {
		return fmt.Errorf("could not clear previous edges for model %d: %w", modelID, err)
	}

	stmtInsertEdge, err := tx.PrepareContext(ctx, `INSERT INTO ngram_edges (model_id, prefix, suffix, freq) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertEdge)

	var edges int
	m.Edges(func(prefix, suffix string, count int) bool {
		if _, err = stmtInsertEdge.ExecContext(ctx, modelID, prefix, suffix, count); err != nil {
			err = fmt.Errorf("failed to insert edge (%q -> %q): %w", prefix, suffix, err)
			return false
		}
		edges++
		return true
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "model saved",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("order", m.Order()),
		slog.Int("edges", edges),
	)

	return tx.Commit()
}

// Load rebuilds a model from its stored edges. Edges are replayed in the
// order they were saved, so the loaded model's sampling behavior matches
// the saved one exactly. It returns sql.ErrNoRows if the model does not
// exist.
func (s *Store) Load(ctx context.Context, name string) (*ngram.Model, error) {
	info, err := s.Info(ctx, name)
	if err != nil {
		return nil, err
	}

	m, err := ngram.NewModel(info.Order)
	if err != nil {
		return nil, fmt.Errorf("stored model '%s' has invalid order: %w", name, err)
	}

	rows, err := s.stmtGetEdges.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var edges int
	for rows.Next() {
		var prefix, suffix string
		var freq int
		if err = rows.Scan(&prefix, &suffix, &freq); err != nil {
			return nil, err
		}
		if err = m.ObserveEdge(prefix, suffix, freq); err != nil {
			return nil, fmt.Errorf("stored edge (%q -> %q) rejected: %w", prefix, suffix, err)
		}
		edges++
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "model loaded",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
		slog.Int("edges", edges),
	)

	return m, nil
}

// Delete removes a model and all of its edges. Deleting a model that does
// not exist is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	info, err := s.Info(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for delete: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, `DELETE FROM ngram_edges WHERE model_id = ?`, info.Id); err != nil {
		return fmt.Errorf("failed to remove edges for model %d: %w", info.Id, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM ngram_models WHERE model_id = ?`, info.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "model removed",
		slog.String("model_name", name),
		slog.Int("model_id", info.Id),
	)

	return tx.Commit()
}

// EdgeCount reports how many edges are stored for a model.
func (s *Store) EdgeCount(ctx context.Context, name string) (int, error) {
	info, err := s.Info(ctx, name)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.stmtCountEdges.QueryRowContext(ctx, info.Id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
