package corpus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lotusmind/yogachat/internal/db"
	"github.com/lotusmind/yogachat/internal/domain"
)

type mockStore struct {
	hsetItems   []db.HashSetItem
	hashes      map[string]map[string]string
	createdDef  *db.IndexDefinition
	createErr   error
	indexExists bool
	searchQ     *db.KNNQuery
	searchRes   *db.SearchResult
	searchErr   error
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.hsetItems = append(m.hsetItems, db.HashSetItem{Key: key, Fields: fields})
	return nil
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	m.hsetItems = append(m.hsetItems, items...)
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	return m.hashes[key], nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.createdDef = def
	return m.createErr
}

func (m *mockStore) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.indexExists, nil
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.searchQ = q
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchRes, nil
}

type mockEmbedder struct {
	dims  int
	calls []string
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	m.calls = append(m.calls, text)
	return domain.EmbeddingResult{Embedding: make([]float32, m.dims)}, nil
}

func testOpts() Options {
	return Options{KeyPrefix: "yogachat:corpus:", Dimensions: 4, HNSWM: 32, HNSWEFConstruct: 400}
}

func TestRepo_SimilaritySearch(t *testing.T) {
	store := &mockStore{
		searchRes: &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{Key: "yogachat:corpus:0", Score: 0.9, Fields: map[string]string{
					"__content": "Sirsasana is the headstand.", "title": "Sirsasana", "url": "https://example.com/sirsasana",
				}},
				{Key: "yogachat:corpus:1", Score: 0.7, Fields: map[string]string{
					"__content": "Savasana is the corpse pose.", "title": "Savasana", "url": "https://example.com/savasana",
				}},
			},
		},
	}
	repo := New(store, &mockEmbedder{dims: 4}, testOpts())

	docs, err := repo.SimilaritySearch(context.Background(), "headstand", 100)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Title != "Sirsasana" || docs[1].Title != "Savasana" {
		t.Errorf("order not preserved: %+v", docs)
	}
	if store.searchQ.IndexName != "yogachat:corpus:idx" {
		t.Errorf("unexpected index name %q", store.searchQ.IndexName)
	}
	if store.searchQ.K != 100 {
		t.Errorf("expected K=100, got %d", store.searchQ.K)
	}
}

func TestRepo_SimilaritySearch_MissingIndexMapsToNotReady(t *testing.T) {
	store := &mockStore{searchErr: db.ErrIndexNotFound}
	repo := New(store, &mockEmbedder{dims: 4}, testOpts())

	_, err := repo.SimilaritySearch(context.Background(), "headstand", 10)
	if !errors.Is(err, domain.ErrIndexNotReady) {
		t.Fatalf("expected ErrIndexNotReady, got %v", err)
	}
}

func TestRepo_SimilaritySearch_EmbedErrorPropagates(t *testing.T) {
	embedErr := errors.New("provider down")
	repo := New(&mockStore{}, &mockEmbedder{err: embedErr}, testOpts())

	_, err := repo.SimilaritySearch(context.Background(), "headstand", 10)
	if !errors.Is(err, embedErr) {
		t.Fatalf("expected embed error, got %v", err)
	}
}

func TestRepo_EnsureIndex(t *testing.T) {
	store := &mockStore{}
	repo := New(store, &mockEmbedder{dims: 4}, testOpts())

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	def := store.createdDef
	if def == nil {
		t.Fatal("expected index definition")
	}
	if def.Name != "yogachat:corpus:idx" {
		t.Errorf("unexpected index name %q", def.Name)
	}
	var vectorField *db.IndexField
	for i := range def.Fields {
		if def.Fields[i].Type == db.IndexFieldVector {
			vectorField = &def.Fields[i]
		}
	}
	if vectorField == nil {
		t.Fatal("expected a vector field")
	}
	if vectorField.VectorDim != 4 || vectorField.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field: %+v", vectorField)
	}
	if vectorField.Name != "__vector" || vectorField.Alias != "vector" {
		t.Errorf("vector field must be stored as __vector and queried as vector: %+v", vectorField)
	}
}

func TestRepo_EnsureIndex_AlreadyExistsIsOK(t *testing.T) {
	store := &mockStore{createErr: db.ErrIndexExists}
	repo := New(store, &mockEmbedder{dims: 4}, testOpts())

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("expected nil for existing index, got %v", err)
	}
}

func TestRepo_AddBatch(t *testing.T) {
	store := &mockStore{}
	repo := New(store, &mockEmbedder{dims: 4}, testOpts())

	docs := []domain.Document{
		{Content: "Sirsasana basics", Title: "Sirsasana", URL: "https://example.com/1"},
		{Content: "Savasana basics", Title: "Savasana", URL: "https://example.com/2"},
	}
	if err := repo.AddBatch(context.Background(), 10, docs); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	if len(store.hsetItems) != 2 {
		t.Fatalf("expected 2 stored hashes, got %d", len(store.hsetItems))
	}
	if store.hsetItems[0].Key != "yogachat:corpus:10" || store.hsetItems[1].Key != "yogachat:corpus:11" {
		t.Errorf("unexpected keys: %q %q", store.hsetItems[0].Key, store.hsetItems[1].Key)
	}
	fields := store.hsetItems[0].Fields
	if fields["title"] != "Sirsasana" || !strings.Contains(fields["__content"], "Sirsasana") {
		t.Errorf("unexpected fields: %+v", fields)
	}
	if len(fields["__vector"]) != 16 {
		t.Errorf("expected 16-byte vector blob, got %d bytes", len(fields["__vector"]))
	}
}

func TestRepo_AddBatch_Empty(t *testing.T) {
	store := &mockStore{}
	repo := New(store, &mockEmbedder{dims: 4}, testOpts())

	if err := repo.AddBatch(context.Background(), 0, nil); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(store.hsetItems) != 0 {
		t.Errorf("expected no writes for empty batch")
	}
}

func TestRepo_Document(t *testing.T) {
	store := &mockStore{hashes: map[string]map[string]string{
		"yogachat:corpus:7": {
			"__content": "Sirsasana là tư thế trồng chuối.",
			"title":     "Sirsasana",
			"url":       "https://example.com/sirsasana",
			"__vector":  db.VectorToString([]float32{0.1, 0.2, 0.3, 0.4}),
		},
	}}
	repo := New(store, &mockEmbedder{dims: 4}, testOpts())

	doc, dims, err := repo.Document(context.Background(), 7)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}
	if doc.Title != "Sirsasana" || doc.URL != "https://example.com/sirsasana" {
		t.Errorf("unexpected document: %+v", doc)
	}
	if dims != 4 {
		t.Errorf("expected 4 stored dimensions, got %d", dims)
	}
}

func TestRepo_Document_NotFound(t *testing.T) {
	repo := New(&mockStore{}, &mockEmbedder{dims: 4}, testOpts())

	if _, _, err := repo.Document(context.Background(), 99); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestRepo_Ready(t *testing.T) {
	store := &mockStore{indexExists: true}
	repo := New(store, &mockEmbedder{dims: 4}, testOpts())

	ok, err := repo.Ready(context.Background())
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if !ok {
		t.Error("expected ready")
	}
}
