// Package corpus persists the yoga knowledge base as Redis hashes under a
// single FT vector index and serves nearest-neighbor retrieval for the chat
// pipeline.
package corpus

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotusmind/yogachat/internal/db"
	"github.com/lotusmind/yogachat/internal/domain"
)

// store is the consumer interface for corpus operations (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Options carry index layout settings.
type Options struct {
	KeyPrefix       string
	Dimensions      int
	HNSWM           int
	HNSWEFConstruct int
}

// Repo implements domain.Retriever over an FT vector index.
type Repo struct {
	store    store
	embedder domain.Embedder
	opts     Options
}

// New creates a corpus repository.
func New(s store, embedder domain.Embedder, opts Options) *Repo {
	return &Repo{store: s, embedder: embedder, opts: opts}
}

// IndexName returns the FT index name derived from the key prefix.
func (r *Repo) IndexName() string {
	return r.opts.KeyPrefix + "idx"
}

// SimilaritySearch embeds the query and returns the k nearest documents.
// A missing FT index maps to domain.ErrIndexNotReady so callers can report
// "not ready" instead of an opaque storage error.
func (r *Repo) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Document, error) {
	emb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	q := &db.KNNQuery{
		IndexName:    r.IndexName(),
		Vector:       emb.Embedding,
		K:            k,
		ReturnFields: []string{"__content", "title", "url"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrIndexNotReady, err)
		}
		return nil, fmt.Errorf("search knn: %w", err)
	}

	return parseKNNResult(sr), nil
}

// Document reads one stored document back by positional id, along with the
// dimension count of its stored vector. Ingest uses it to verify a write
// round-trips; the chat path only ever goes through SimilaritySearch.
func (r *Repo) Document(ctx context.Context, id int) (domain.Document, int, error) {
	key := fmt.Sprintf("%s%d", r.opts.KeyPrefix, id)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.Document{}, 0, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return domain.Document{}, 0, fmt.Errorf("document %d not found", id)
	}

	doc := domain.Document{
		Content: fields["__content"],
		Title:   fields["title"],
		URL:     fields["url"],
	}
	return doc, len(db.VectorFromString(fields["__vector"])), nil
}

// Ready reports whether the FT index exists.
func (r *Repo) Ready(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return false, fmt.Errorf("index exists: %w", err)
	}
	return ok, nil
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := &db.IndexDefinition{
		Name:     r.IndexName(),
		Prefixes: []string{r.opts.KeyPrefix},
		Fields: []db.IndexField{
			{Name: "title", Type: db.IndexFieldText},
			{Name: "url", Type: db.IndexFieldTag},
			{
				// Stored as __vector in the hash, queried as @vector;
				// the score field then comes back as __vector_score.
				Name:              "__vector",
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorDim:         r.opts.Dimensions,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.opts.HNSWM,
				VectorEFConstruct: r.opts.HNSWEFConstruct,
			},
		},
	}

	err := r.store.CreateIndex(ctx, def)
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// AddBatch embeds and stores documents in one pipelined write.
// Document IDs are positional; callers re-running ingest with the same corpus
// overwrite the same keys.
func (r *Repo) AddBatch(ctx context.Context, startID int, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	var vectors [][]float32
	if be, ok := r.embedder.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("batch embed: %w", err)
		}
		vectors = res.Embeddings
	} else {
		res, err := domain.BatchFallback(ctx, r.embedder, texts)
		if err != nil {
			return fmt.Errorf("batch embed: %w", err)
		}
		vectors = res.Embeddings
	}

	if len(vectors) != len(docs) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d documents", len(vectors), len(docs))
	}

	items := make([]db.HashSetItem, 0, len(docs))
	for i, d := range docs {
		items = append(items, db.HashSetItem{
			Key: fmt.Sprintf("%s%d", r.opts.KeyPrefix, startID+i),
			Fields: map[string]string{
				"__content": d.Content,
				"title":     d.Title,
				"url":       d.URL,
				"__vector":  db.VectorToString(vectors[i]),
			},
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset batch: %w", err)
	}
	return nil
}

// parseKNNResult converts a db search result into domain documents,
// preserving the provider's distance ordering.
func parseKNNResult(sr *db.SearchResult) []domain.Document {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	docs := make([]domain.Document, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		docs = append(docs, domain.Document{
			Content: entry.Fields["__content"],
			Title:   entry.Fields["title"],
			URL:     entry.Fields["url"],
		})
	}
	return docs
}
