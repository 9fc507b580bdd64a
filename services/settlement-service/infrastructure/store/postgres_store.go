package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/isectech/bulkshare/services/settlement-service/domain/repository"
	"github.com/isectech/bulkshare/shared/common"
)

const documentsSchema = `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT        NOT NULL,
		key        TEXT        NOT NULL,
		body       JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, key)
	);
	CREATE INDEX IF NOT EXISTS documents_body_idx ON documents USING GIN (body jsonb_path_ops);`

// PostgresStore is a DocumentStore kept in a single JSONB table
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens the connection pool and ensures the schema exists
func NewPostgresStore(ctx context.Context, config common.PostgreSQLConfig) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", config.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := NewPostgresStoreWithDB(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing handle
func NewPostgresStoreWithDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the documents table if needed
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, documentsSchema); err != nil {
		return errors.Wrap(err, "create documents schema")
	}
	return nil
}

// Get implements repository.DocumentStore
func (s *PostgresStore) Get(ctx context.Context, collection, key string) (repository.Document, error) {
	var body []byte
	query := `SELECT body FROM documents WHERE collection = $1 AND key = $2`

	err := s.db.GetContext(ctx, &body, query, collection, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrDocumentNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get %s/%s", collection, key)
	}

	return decodeBody(body)
}

// Put implements repository.DocumentStore
func (s *PostgresStore) Put(ctx context.Context, collection, key string, doc repository.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrapf(err, "encode %s/%s", collection, key)
	}

	query := `
		INSERT INTO documents (collection, key, body, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, key)
		DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, collection, key, body); err != nil {
		return errors.Wrapf(err, "put %s/%s", collection, key)
	}
	return nil
}

// UpdateField implements repository.FieldUpdater with jsonb_set
func (s *PostgresStore) UpdateField(ctx context.Context, collection, key, field string, value interface{}) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode %s/%s.%s", collection, key, field)
	}

	query := `
		UPDATE documents
		SET body = jsonb_set(body, ARRAY[$3::text], $4::jsonb), updated_at = now()
		WHERE collection = $1 AND key = $2`

	result, err := s.db.ExecContext(ctx, query, collection, key, field, string(encoded))
	if err != nil {
		return errors.Wrapf(err, "update %s/%s.%s", collection, key, field)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "update %s/%s.%s", collection, key, field)
	}
	if affected == 0 {
		return repository.ErrDocumentNotFound
	}
	return nil
}

// Query implements repository.DocumentStore. The field is matched on its
// text form.
func (s *PostgresStore) Query(ctx context.Context, collection, field string, value interface{}) ([]repository.Document, error) {
	var bodies [][]byte
	query := `SELECT body FROM documents WHERE collection = $1 AND body->>$2 = $3 ORDER BY key`

	if err := s.db.SelectContext(ctx, &bodies, query, collection, field, fmt.Sprint(value)); err != nil {
		return nil, errors.Wrapf(err, "query %s where %s", collection, field)
	}

	results := make([]repository.Document, 0, len(bodies))
	for _, body := range bodies {
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		results = append(results, doc)
	}
	return results, nil
}

// Ping implements repository.HealthChecker
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func decodeBody(body []byte) (repository.Document, error) {
	doc := repository.Document{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, errors.Wrap(err, "decode document body")
	}
	return doc, nil
}
