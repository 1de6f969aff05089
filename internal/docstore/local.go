package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/veltaworks/docintel/internal/db"
	"github.com/veltaworks/docintel/internal/embeddings"
)

const collectionName = "documents"

// LocalStore implements Store with SQLite as the authoritative row store and
// a chromem-go collection as the vector index. The index is rebuilt from
// SQLite on open, so SQLite alone carries durability.
type LocalStore struct {
	db  *db.DB
	col *chromem.Collection
}

// NewLocalStore creates a LocalStore over the given database and rebuilds
// the vector index from the persisted rows.
func NewLocalStore(d *db.DB, embedder embeddings.Embedder) (*LocalStore, error) {
	cdb := chromem.NewDB()
	col, err := cdb.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	s := &LocalStore{db: d, col: col}
	if err := s.reindex(context.Background()); err != nil {
		return nil, fmt.Errorf("rebuild vector index: %w", err)
	}
	return s, nil
}

// reindex loads all live documents into the chromem collection.
func (s *LocalStore) reindex(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE superseded_by IS NULL")
	if err != nil {
		return err
	}
	defer rows.Close()

	var cdocs []chromem.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return err
		}
		cdocs = append(cdocs, toChromemDoc(doc))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(cdocs) == 0 {
		return nil
	}
	return s.col.AddDocuments(ctx, cdocs, 1)
}

func (s *LocalStore) Put(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		return &PersistenceError{Op: "put", Err: fmt.Errorf("document id is empty")}
	}

	emb, err := json.Marshal(doc.Embedding)
	if err != nil {
		return &PersistenceError{Op: "put", Err: fmt.Errorf("encoding embedding: %w", err)}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (
			id, title, content, normalized_text, document_type, embedding,
			content_hash, near_dup_signature, project_ref, client_ref,
			attribution_confidence, needs_review, source_name, source_size,
			source_mime, version_of, superseded_by, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			normalized_text = excluded.normalized_text,
			document_type = excluded.document_type,
			embedding = excluded.embedding,
			content_hash = excluded.content_hash,
			near_dup_signature = excluded.near_dup_signature,
			project_ref = excluded.project_ref,
			client_ref = excluded.client_ref,
			attribution_confidence = excluded.attribution_confidence,
			needs_review = excluded.needs_review,
			source_name = excluded.source_name,
			source_size = excluded.source_size,
			source_mime = excluded.source_mime,
			version_of = excluded.version_of,
			superseded_by = excluded.superseded_by,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Title, doc.Content, doc.NormalizedText, string(doc.DocumentType), emb,
		doc.ContentHash, doc.NearDupSignature, nullStr(doc.ProjectRef), nullStr(doc.ClientRef),
		nullFloat(doc.AttributionConfidence), boolInt(doc.NeedsReview),
		doc.Source.FileName, doc.Source.Size, doc.Source.MimeType,
		nullStr(doc.VersionOf), nullStr(doc.SupersededBy),
		formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
	if err != nil {
		return &PersistenceError{Op: "put", Transient: isTransient(err), Err: err}
	}

	// Refresh the vector index entry. If this fails the row is still on
	// disk and the index converges again at next open.
	if s.col.Count() > 0 {
		if err := s.col.Delete(ctx, nil, nil, doc.ID); err != nil {
			return &PersistenceError{Op: "put", Err: fmt.Errorf("evicting stale vector: %w", err)}
		}
	}
	if err := s.col.AddDocuments(ctx, []chromem.Document{toChromemDoc(doc)}, 1); err != nil {
		return &PersistenceError{Op: "put", Err: fmt.Errorf("indexing vector: %w", err)}
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get", Transient: isTransient(err), Err: err}
	}
	return doc, nil
}

func (s *LocalStore) GetByHash(ctx context.Context, hash string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+` FROM documents
		 WHERE content_hash = ? AND superseded_by IS NULL
		 ORDER BY updated_at DESC LIMIT 1`, hash)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get_by_hash", Transient: isTransient(err), Err: err}
	}
	return doc, nil
}

func (s *LocalStore) SimilaritySearch(ctx context.Context, vector []float32, f Filters, limit int) ([]ScoredDocument, error) {
	if limit <= 0 {
		limit = 10
	}

	count := s.col.Count()
	if count == 0 {
		return nil, nil
	}

	// Time-range filters are applied after the vector query, so widen it
	// to the whole collection in that case.
	n := limit
	timeFiltered := !f.CreatedAfter.IsZero() || !f.CreatedBefore.IsZero()
	if timeFiltered || n > count {
		n = count
	}

	where := make(map[string]string)
	if f.ProjectRef != "" {
		where["project_ref"] = f.ProjectRef
	}
	if f.DocumentType != "" {
		where["document_type"] = string(f.DocumentType)
	}
	if len(where) == 0 {
		where = nil
	}

	results, err := s.col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		return nil, &PersistenceError{Op: "similarity_search", Err: err}
	}

	scored := make([]ScoredDocument, 0, len(results))
	for _, r := range results {
		doc, err := s.Get(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if doc == nil || doc.SupersededBy != "" {
			continue
		}
		if !f.CreatedAfter.IsZero() && doc.CreatedAt.Before(f.CreatedAfter) {
			continue
		}
		if !f.CreatedBefore.IsZero() && !doc.CreatedAt.Before(f.CreatedBefore) {
			continue
		}
		scored = append(scored, ScoredDocument{Document: doc, Score: float64(r.Similarity)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Document.UpdatedAt.After(scored[j].Document.UpdatedAt)
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *LocalStore) Aggregate(ctx context.Context, f Filters) (*Aggregates, error) {
	whereSQL, args := buildWhere(f)

	agg := &Aggregates{
		ByType: make(map[DocumentType]int),
		ByDay:  make(map[string]int),
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents "+whereSQL, args...).Scan(&agg.Total); err != nil {
		return nil, &PersistenceError{Op: "aggregate", Transient: isTransient(err), Err: err}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT document_type, COUNT(*) FROM documents "+whereSQL+" GROUP BY document_type", args...)
	if err != nil {
		return nil, &PersistenceError{Op: "aggregate", Transient: isTransient(err), Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, &PersistenceError{Op: "aggregate", Err: err}
		}
		agg.ByType[DocumentType(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "aggregate", Err: err}
	}

	dayRows, err := s.db.QueryContext(ctx,
		"SELECT substr(created_at, 1, 10), COUNT(*) FROM documents "+whereSQL+
			" GROUP BY substr(created_at, 1, 10)", args...)
	if err != nil {
		return nil, &PersistenceError{Op: "aggregate", Transient: isTransient(err), Err: err}
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var day string
		var n int
		if err := dayRows.Scan(&day, &n); err != nil {
			return nil, &PersistenceError{Op: "aggregate", Err: err}
		}
		agg.ByDay[day] = n
	}
	if err := dayRows.Err(); err != nil {
		return nil, &PersistenceError{Op: "aggregate", Err: err}
	}

	return agg, nil
}

func (s *LocalStore) MarkSuperseded(ctx context.Context, id, byID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET superseded_by = ?, updated_at = ? WHERE id = ?",
		byID, formatTime(time.Now().UTC()), id)
	if err != nil {
		return &PersistenceError{Op: "mark_superseded", Transient: isTransient(err), Err: err}
	}
	if s.col.Count() > 0 {
		if err := s.col.Delete(ctx, nil, nil, id); err != nil {
			return &PersistenceError{Op: "mark_superseded", Err: fmt.Errorf("evicting vector: %w", err)}
		}
	}
	return nil
}

func (s *LocalStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE superseded_by IS NULL").Scan(&n)
	if err != nil {
		return 0, &PersistenceError{Op: "count", Transient: isTransient(err), Err: err}
	}
	return n, nil
}

// documentColumns is the fixed select list matched by scanDocument.
const documentColumns = `id, title, content, normalized_text, document_type, embedding,
	content_hash, near_dup_signature, project_ref, client_ref, attribution_confidence,
	needs_review, source_name, source_size, source_mime, version_of, superseded_by,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc        Document
		typ        string
		emb        []byte
		projectRef sql.NullString
		clientRef  sql.NullString
		confidence sql.NullFloat64
		review     int
		versionOf  sql.NullString
		superseded sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.NormalizedText, &typ, &emb,
		&doc.ContentHash, &doc.NearDupSignature, &projectRef, &clientRef, &confidence,
		&review, &doc.Source.FileName, &doc.Source.Size, &doc.Source.MimeType,
		&versionOf, &superseded, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	doc.DocumentType = DocumentType(typ)
	if err := json.Unmarshal(emb, &doc.Embedding); err != nil {
		return nil, fmt.Errorf("decoding embedding for %s: %w", doc.ID, err)
	}
	doc.ProjectRef = projectRef.String
	doc.ClientRef = clientRef.String
	if confidence.Valid {
		c := confidence.Float64
		doc.AttributionConfidence = &c
	}
	doc.NeedsReview = review != 0
	doc.VersionOf = versionOf.String
	doc.SupersededBy = superseded.String
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", doc.ID, err)
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at for %s: %w", doc.ID, err)
	}
	return &doc, nil
}

func toChromemDoc(doc *Document) chromem.Document {
	return chromem.Document{
		ID:        doc.ID,
		Content:   doc.NormalizedText,
		Embedding: doc.Embedding,
		Metadata: map[string]string{
			"document_type": string(doc.DocumentType),
			"project_ref":   doc.ProjectRef,
			"content_hash":  doc.ContentHash,
		},
	}
}

func buildWhere(f Filters) (string, []any) {
	clauses := []string{"superseded_by IS NULL"}
	var args []any
	if f.ProjectRef != "" {
		clauses = append(clauses, "project_ref = ?")
		args = append(args, f.ProjectRef)
	}
	if f.DocumentType != "" {
		clauses = append(clauses, "document_type = ?")
		args = append(args, string(f.DocumentType))
	}
	if !f.CreatedAfter.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(f.CreatedAfter))
	}
	if !f.CreatedBefore.IsZero() {
		clauses = append(clauses, "created_at < ?")
		args = append(args, formatTime(f.CreatedBefore))
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isTransient reports whether a SQLite error is worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked") ||
		strings.Contains(msg, "timeout")
}
