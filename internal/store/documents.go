package store

import (
	"database/sql"
	"errors"

	"github.com/madhatter5501/catalyst/domain"
)

// Document is one row in project_documents — a named markdown fragment
// such as the Unknowns document SpecManager writes during Parse.
type Document struct {
	Slug    string
	Title   string
	Content string
}

// GetDocument returns one project document by slug.
func (s *Store) GetDocument(slug string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc Document
	doc.Slug = slug
	err := s.db.QueryRow(`SELECT title, content FROM project_documents WHERE slug = ?`, slug).
		Scan(&doc.Title, &doc.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, domain.NewError(domain.KindNotFound, "document "+slug, nil)
	}
	if err != nil {
		return Document{}, domain.NewError(domain.KindStorage, "get_document", err)
	}
	return doc, nil
}

// SetDocument upserts a project document by slug.
func (s *Store) SetDocument(slug, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO project_documents (slug, title, content) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET title=excluded.title, content=excluded.content,
			updated_at=CURRENT_TIMESTAMP
	`, slug, title, content)
	if err != nil {
		return domain.NewError(domain.KindStorage, "set_document", err)
	}
	return nil
}

// ListDocuments returns every project document's slug and title.
func (s *Store) ListDocuments() ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT slug, title, content FROM project_documents ORDER BY slug`)
	if err != nil {
		return nil, domain.NewError(domain.KindStorage, "list_documents", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.Slug, &doc.Title, &doc.Content); err != nil {
			return nil, domain.NewError(domain.KindStorage, "list_documents: scan", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
