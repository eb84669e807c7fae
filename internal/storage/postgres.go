package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"easel/plugin/internal/model"
)

// PostgresGateway stores collection blobs in a single jsonb table keyed by
// (document_id, name). Each save is one upsert, so the overwrite is atomic
// from the caller's point of view.
type PostgresGateway struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenPostgres connects to Postgres, verifies the connection, and ensures
// the blob table exists.
func OpenPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresGateway, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	gateway := &PostgresGateway{db: db, logger: logger}
	if err := gateway.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return gateway, nil
}

func (g *PostgresGateway) ensureSchema(ctx context.Context) error {
	_, err := g.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+Namespace+`_collections (
			document_id TEXT NOT NULL,
			name        TEXT NOT NULL,
			payload     JSONB NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (document_id, name)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure collections table: %w", err)
	}
	return nil
}

func (g *PostgresGateway) loadBlob(ctx context.Context, documentID, name string) ([]byte, error) {
	var payload []byte
	err := g.db.QueryRowContext(ctx, `
		SELECT payload FROM `+Namespace+`_collections
		WHERE document_id=$1 AND name=$2
	`, documentID, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s blob: %w", name, err)
	}
	return payload, nil
}

func (g *PostgresGateway) saveBlob(ctx context.Context, documentID, name string, payload []byte) error {
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO `+Namespace+`_collections (document_id, name, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (document_id, name) DO UPDATE SET payload=EXCLUDED.payload, updated_at=NOW()
	`, documentID, name, payload)
	if err != nil {
		return fmt.Errorf("save %s blob: %w", name, err)
	}
	return nil
}

func (g *PostgresGateway) LoadDecisions(ctx context.Context, documentID string) ([]model.Decision, error) {
	payload, err := g.loadBlob(ctx, documentID, KeyDecisions)
	if err != nil {
		return []model.Decision{}, err
	}
	if payload == nil {
		return []model.Decision{}, nil
	}
	return decodeDecisions(payload, g.logger)
}

func (g *PostgresGateway) SaveDecisions(ctx context.Context, documentID string, decisions []model.Decision) error {
	payload, err := json.Marshal(decisions)
	if err != nil {
		return fmt.Errorf("encode decisions: %w", err)
	}
	return g.saveBlob(ctx, documentID, KeyDecisions, payload)
}

func (g *PostgresGateway) LoadResources(ctx context.Context, documentID string) ([]model.Resource, error) {
	payload, err := g.loadBlob(ctx, documentID, KeyResources)
	if err != nil {
		return []model.Resource{}, err
	}
	if payload == nil {
		return []model.Resource{}, nil
	}
	return decodeResources(payload, g.logger)
}

func (g *PostgresGateway) SaveResources(ctx context.Context, documentID string, resources []model.Resource) error {
	payload, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("encode resources: %w", err)
	}
	return g.saveBlob(ctx, documentID, KeyResources, payload)
}

func (g *PostgresGateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

func (g *PostgresGateway) Close() error {
	return g.db.Close()
}
