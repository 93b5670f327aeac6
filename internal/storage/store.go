// Package storage persists documents, their tokens and their TF-IDF weights
// to a relational database. The in-memory index stays authoritative: a write
// that fails here is reported to the caller and nothing else is undone.
//
//	CREATE TABLE documents (doc_id BIGINT PRIMARY KEY, content TEXT NOT NULL);
//	CREATE TABLE tokens    (token TEXT, doc_id BIGINT, PRIMARY KEY (token, doc_id));
//	CREATE TABLE tfidf     (token TEXT, doc_id BIGINT, value DOUBLE PRECISION,
//	                        PRIMARY KEY (token, doc_id));
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

// Store is the durable sink used by the ingestion coordinator.
type Store interface {
	PersistDocument(ctx context.Context, docID index.DocID, content string) error
	PersistToken(ctx context.Context, token string, docID index.DocID) error
	PersistScore(ctx context.Context, token string, docID index.DocID, value float64) error
	QueryDocIDsForToken(ctx context.Context, token string) (*roaring.Bitmap, error)
	Ping(ctx context.Context) error
	Close() error
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		doc_id  BIGINT PRIMARY KEY,
		content TEXT   NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		token  TEXT   NOT NULL,
		doc_id BIGINT NOT NULL,
		PRIMARY KEY (token, doc_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tfidf (
		token  TEXT             NOT NULL,
		doc_id BIGINT           NOT NULL,
		value  DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (token, doc_id)
	)`,
}

const (
	insertDocument = `INSERT INTO documents (doc_id, content) VALUES (?, ?)
		ON CONFLICT (doc_id) DO UPDATE SET content = excluded.content`
	insertToken = `INSERT INTO tokens (token, doc_id) VALUES (?, ?)
		ON CONFLICT (token, doc_id) DO NOTHING`
	insertScore = `INSERT INTO tfidf (token, doc_id, value) VALUES (?, ?, ?)
		ON CONFLICT (token, doc_id) DO UPDATE SET value = excluded.value`
	selectDocIDs = `SELECT doc_id FROM tokens WHERE token = ?`
)

// sqlStore implements Store for any database/sql driver that accepts the
// ON CONFLICT upsert syntax. Queries are written with ? placeholders and
// rebound for drivers that number them.
type sqlStore struct {
	db       *sql.DB
	driver   string
	numbered bool
	logger   *slog.Logger
	stmts    map[string]string
}

func newSQLStore(ctx context.Context, db *sql.DB, driver string, numbered bool) (*sqlStore, error) {
	s := &sqlStore{
		db:       db,
		driver:   driver,
		numbered: numbered,
		logger:   slog.Default().With("component", "storage", "driver", driver),
		stmts:    make(map[string]string),
	}
	for _, q := range []string{insertDocument, insertToken, insertScore, selectDocIDs} {
		s.stmts[q] = s.rebind(q)
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) migrate(ctx context.Context) error {
	err := postgres.InTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, ddl := range schema {
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: creating schema: %w", apperrors.ErrStorage, err)
	}
	s.logger.Info("storage schema ready")
	return nil
}

func (s *sqlStore) PersistDocument(ctx context.Context, docID index.DocID, content string) error {
	if _, err := s.db.ExecContext(ctx, s.stmts[insertDocument], int64(docID), content); err != nil {
		return fmt.Errorf("%w: persisting document %d: %w", apperrors.ErrStorage, docID, err)
	}
	return nil
}

func (s *sqlStore) PersistToken(ctx context.Context, token string, docID index.DocID) error {
	if _, err := s.db.ExecContext(ctx, s.stmts[insertToken], token, int64(docID)); err != nil {
		return fmt.Errorf("%w: persisting token %q for document %d: %w", apperrors.ErrStorage, token, docID, err)
	}
	return nil
}

func (s *sqlStore) PersistScore(ctx context.Context, token string, docID index.DocID, value float64) error {
	if _, err := s.db.ExecContext(ctx, s.stmts[insertScore], token, int64(docID), value); err != nil {
		return fmt.Errorf("%w: persisting tfidf %q for document %d: %w", apperrors.ErrStorage, token, docID, err)
	}
	return nil
}

func (s *sqlStore) QueryDocIDsForToken(ctx context.Context, token string) (*roaring.Bitmap, error) {
	rows, err := s.db.QueryContext(ctx, s.stmts[selectDocIDs], token)
	if err != nil {
		return nil, fmt.Errorf("%w: querying token %q: %w", apperrors.ErrStorage, token, err)
	}
	defer rows.Close()

	result := roaring.New()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning doc id: %w", apperrors.ErrStorage, err)
		}
		result.Add(index.DocID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: querying token %q: %w", apperrors.ErrStorage, token, err)
	}
	return result, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for numbered drivers.
func (s *sqlStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
