package repository

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/identity"
	"github.com/noah-isme/roadworks-api/internal/models"
)

// Fixed KV document keys. Each cache is serialized as a single JSON
// object under one key of the durable store.
const (
	roadCacheKey     = "enrichment:roads"
	districtCacheKey = "enrichment:districts"
	deadlineCacheKey = "deadlines"
)

// EnrichmentRepository persists resolved road names and districts keyed
// by location identity. Entries never expire; they only accumulate.
type EnrichmentRepository struct {
	store  KVStore
	logger *zap.Logger
}

// NewEnrichmentRepository constructs the repository.
func NewEnrichmentRepository(store KVStore, logger *zap.Logger) *EnrichmentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichmentRepository{store: store, logger: logger}
}

// RoadName looks the identity keys up in order and returns the first hit.
func (r *EnrichmentRepository) RoadName(ctx context.Context, keys []identity.Key) (string, bool, error) {
	return r.lookup(ctx, roadCacheKey, keys)
}

// District looks the identity keys up in order and returns the first hit.
func (r *EnrichmentRepository) District(ctx context.Context, keys []identity.Key) (string, bool, error) {
	return r.lookup(ctx, districtCacheKey, keys)
}

// SaveRoadName writes the resolved name under every identity key.
func (r *EnrichmentRepository) SaveRoadName(ctx context.Context, keys []identity.Key, name string) error {
	return r.write(ctx, roadCacheKey, keys, name)
}

// SaveDistrict writes the resolved district under every identity key.
func (r *EnrichmentRepository) SaveDistrict(ctx context.Context, keys []identity.Key, district string) error {
	return r.write(ctx, districtCacheKey, keys, district)
}

func (r *EnrichmentRepository) lookup(ctx context.Context, docKey string, keys []identity.Key) (string, bool, error) {
	doc, err := r.loadDoc(ctx, docKey)
	if err != nil {
		return "", false, err
	}
	for _, key := range keys {
		if value, ok := doc[key.String()]; ok {
			return value, true, nil
		}
	}
	return "", false, nil
}

func (r *EnrichmentRepository) write(ctx context.Context, docKey string, keys []identity.Key, value string) error {
	if len(keys) == 0 {
		return nil
	}
	doc, err := r.loadDoc(ctx, docKey)
	if err != nil {
		return err
	}
	for _, key := range keys {
		doc[key.String()] = value
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, docKey, string(payload))
}

// loadDoc reads the whole cache document. Unparseable stored JSON
// degrades to an empty cache rather than an error.
func (r *EnrichmentRepository) loadDoc(ctx context.Context, docKey string) (map[string]string, error) {
	raw, ok, err := r.store.Get(ctx, docKey)
	if err != nil {
		return nil, err
	}
	doc := map[string]string{}
	if !ok || raw == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		r.logger.Warn("corrupt enrichment cache, starting empty", zap.String("doc", docKey), zap.Error(err))
		return map[string]string{}, nil
	}
	return doc, nil
}

// DeadlineRepository persists per-road DeadlineRecords under a multi-key
// write set: the road key plus every identity key of the road's members,
// so the record survives cache-key drift between data fetches.
type DeadlineRepository struct {
	store  KVStore
	logger *zap.Logger
}

// NewDeadlineRepository constructs the repository.
func NewDeadlineRepository(store KVStore, logger *zap.Logger) *DeadlineRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineRepository{store: store, logger: logger}
}

// Find tries the keys in order and returns the first record found.
func (r *DeadlineRepository) Find(ctx context.Context, keys []string) (*models.DeadlineRecord, bool, error) {
	doc, err := r.loadDoc(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, key := range keys {
		if record, ok := doc[key]; ok {
			return &record, true, nil
		}
	}
	return nil, false, nil
}

// Save writes the record under every key in the write set.
func (r *DeadlineRepository) Save(ctx context.Context, keys []string, record models.DeadlineRecord) error {
	if len(keys) == 0 {
		return nil
	}
	doc, err := r.loadDoc(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		doc[key] = record
	}
	return r.saveDoc(ctx, doc)
}

// Delete removes the record under every key in the write set.
func (r *DeadlineRepository) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	doc, err := r.loadDoc(ctx)
	if err != nil {
		return err
	}
	changed := false
	for _, key := range keys {
		if _, ok := doc[key]; ok {
			delete(doc, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return r.saveDoc(ctx, doc)
}

func (r *DeadlineRepository) loadDoc(ctx context.Context) (map[string]models.DeadlineRecord, error) {
	raw, ok, err := r.store.Get(ctx, deadlineCacheKey)
	if err != nil {
		return nil, err
	}
	doc := map[string]models.DeadlineRecord{}
	if !ok || raw == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		r.logger.Warn("corrupt deadline cache, starting empty", zap.Error(err))
		return map[string]models.DeadlineRecord{}, nil
	}
	return doc, nil
}

func (r *DeadlineRepository) saveDoc(ctx context.Context, doc map[string]models.DeadlineRecord) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, deadlineCacheKey, string(payload))
}
