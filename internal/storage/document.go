package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blockgrid/internal/domain"
)

// DocumentStore implements domain.DocumentStore on a SQL database. Each page
// is one row holding the JSON encoded tree.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) LoadDocument(pageID string) (*domain.Document, error) {
	var (
		tree      string
		updatedAt time.Time
	)
	err := s.db.queryRow(`SELECT tree_json, updated_at FROM documents WHERE page_id = ?`, pageID).
		Scan(&tree, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load document %s: %w", pageID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", pageID, err)
	}
	doc := &domain.Document{}
	if err := json.Unmarshal([]byte(tree), doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", pageID, err)
	}
	doc.PageID = pageID
	doc.UpdatedAt = updatedAt
	return doc, nil
}

// SaveDocument writes doc and stamps its UpdatedAt.
func (s *DocumentStore) SaveDocument(doc *domain.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.PageID, err)
	}
	_, err = s.db.exec(s.db.upsert("documents", "page_id", "tree_json", "updated_at"),
		doc.PageID, string(data), doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.PageID, err)
	}
	return nil
}

func (s *DocumentStore) DeleteDocument(pageID string) error {
	_, err := s.db.exec(`DELETE FROM documents WHERE page_id = ?`, pageID)
	return err
}

// ListPages returns every stored page id in lexical order.
func (s *DocumentStore) ListPages() ([]string, error) {
	rows, err := s.db.query(`SELECT page_id FROM documents ORDER BY page_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ domain.DocumentStore = (*DocumentStore)(nil)
