package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id     TEXT PRIMARY KEY,
	length     INTEGER NOT NULL,
	entities   JSONB NOT NULL DEFAULT '{}'::jsonb,
	indexed_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertDocument = `
INSERT INTO documents (doc_id, length, entities, indexed_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (doc_id) DO UPDATE
SET length = EXCLUDED.length, entities = EXCLUDED.entities, indexed_at = now()`

// PostgresMirror copies merged document metadata into a documents table so
// it can be queried outside the engine.
type PostgresMirror struct {
	client *postgres.Client
}

func NewPostgresMirror(client *postgres.Client) *PostgresMirror {
	return &PostgresMirror{client: client}
}

func (m *PostgresMirror) EnsureSchema(ctx context.Context) error {
	if _, err := m.client.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// MirrorBatch upserts the whole batch in one transaction.
func (m *PostgresMirror) MirrorBatch(ctx context.Context, batch []DocumentInfo) error {
	if len(batch) == 0 {
		return nil
	}
	return m.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertDocument)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, info := range batch {
			entities := info.Entities
			if entities == nil {
				entities = map[string]int{}
			}
			data, err := json.Marshal(entities)
			if err != nil {
				return fmt.Errorf("encoding entities of %s: %w", info.DocID, err)
			}
			if _, err := stmt.ExecContext(ctx, info.DocID, info.Length, data); err != nil {
				return fmt.Errorf("upserting %s: %w", info.DocID, err)
			}
		}
		return nil
	})
}

// Truncate empties the mirror before a fresh build.
func (m *PostgresMirror) Truncate(ctx context.Context) error {
	if _, err := m.client.DB.ExecContext(ctx, "TRUNCATE TABLE documents"); err != nil {
		return fmt.Errorf("truncating documents: %w", err)
	}
	return nil
}
