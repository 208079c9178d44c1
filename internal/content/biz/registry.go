package biz

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cartelera/signage-backend/internal/content/types"
	"github.com/cartelera/signage-backend/internal/pkg/logger"
)

// StageRegistry owns the in-memory collections for all three stages.
// Collections are insertion-ordered and guarded by one mutex per stage;
// only the engine (same package) mutates them, so every externally
// observable change goes through a lifecycle operation.
//
// Only id and title survive a restart: they are re-derived from object
// keys at load time, while statuses and metadata reset to defaults.
// This is an accepted limitation of the key-only persistence model.
type StageRegistry struct {
	store   BlobStore
	baseURL string
	logger  *logger.Logger

	stages map[types.Stage]*stageCollection
}

type stageCollection struct {
	mu      sync.Mutex
	records []types.ContentRecord
}

// NewStageRegistry creates an empty registry
func NewStageRegistry(store BlobStore, baseURL string, lgr *logger.Logger) *StageRegistry {
	if lgr == nil {
		lgr = logger.L()
	}

	stages := make(map[types.Stage]*stageCollection, len(types.Stages))
	for _, stage := range types.Stages {
		stages[stage] = &stageCollection{}
	}

	return &StageRegistry{
		store:   store,
		baseURL: baseURL,
		stages:  stages,
		logger:  lgr,
	}
}

// Load enumerates the stage's namespace and rebuilds its collection.
// Called once per stage at process start. Individual malformed keys are
// logged and skipped; a listing failure is returned to the caller and
// is fatal at startup.
func (r *StageRegistry) Load(ctx context.Context, stage types.Stage) error {
	keys, err := r.store.List(ctx, string(stage))
	if err != nil {
		return err
	}

	records := make([]types.ContentRecord, 0, len(keys))
	now := time.Now()

	for _, key := range keys {
		id, title, err := DecodeKey(stage, key)
		if err != nil {
			r.logger.Warn("skipping malformed object key",
				zap.String("stage", string(stage)),
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}

		records = append(records, types.ContentRecord{
			ID:       id,
			Title:    title,
			ImageURL: r.FileURL(stage, key),
			Path:     string(stage) + "/" + key,
			Type:     "image",
			Status:   "active",
			Metadata: map[string]interface{}{
				"uploadedAt": now.Format(time.RFC3339),
				"status":     "active",
			},
			UploadedAt: now,
		})
	}

	coll := r.stages[stage]
	coll.mu.Lock()
	coll.records = records
	coll.mu.Unlock()

	r.logger.Info("stage collection loaded",
		zap.String("stage", string(stage)),
		zap.Int("records", len(records)),
	)

	return nil
}

// Snapshot returns a copy of the stage's collection in insertion order.
// Metadata maps are cloned so consumers cannot mutate engine state.
func (r *StageRegistry) Snapshot(stage types.Stage) []types.ContentRecord {
	coll := r.stages[stage]
	coll.mu.Lock()
	defer coll.mu.Unlock()

	out := make([]types.ContentRecord, len(coll.records))
	copy(out, coll.records)
	for i := range out {
		out[i].Metadata = cloneMetadata(out[i].Metadata)
	}
	return out
}

// Find returns the record with the given id, reporting absence through
// the boolean rather than an error.
func (r *StageRegistry) Find(stage types.Stage, id string) (types.ContentRecord, bool) {
	coll := r.stages[stage]
	coll.mu.Lock()
	defer coll.mu.Unlock()

	for _, rec := range coll.records {
		if rec.ID == id {
			rec.Metadata = cloneMetadata(rec.Metadata)
			return rec, true
		}
	}
	return types.ContentRecord{}, false
}

// FileURL derives the public URL for a stored object key
func (r *StageRegistry) FileURL(stage types.Stage, key string) string {
	return r.baseURL + "/files/" + string(stage) + "/" + url.PathEscape(key)
}

// append adds a record at the collection tail
func (r *StageRegistry) append(stage types.Stage, rec types.ContentRecord) {
	coll := r.stages[stage]
	coll.mu.Lock()
	coll.records = append(coll.records, rec)
	coll.mu.Unlock()
}

// update applies fn to the record with the given id under the stage
// lock, keeping the read-modify-write atomic. Returns the updated
// record and whether it was found.
func (r *StageRegistry) update(stage types.Stage, id string, fn func(*types.ContentRecord)) (types.ContentRecord, bool) {
	coll := r.stages[stage]
	coll.mu.Lock()
	defer coll.mu.Unlock()

	for i := range coll.records {
		if coll.records[i].ID == id {
			fn(&coll.records[i])
			rec := coll.records[i]
			rec.Metadata = cloneMetadata(rec.Metadata)
			return rec, true
		}
	}
	return types.ContentRecord{}, false
}

// remove deletes the record with the given id, reporting whether it
// was present
func (r *StageRegistry) remove(stage types.Stage, id string) bool {
	coll := r.stages[stage]
	coll.mu.Lock()
	defer coll.mu.Unlock()

	for i := range coll.records {
		if coll.records[i].ID == id {
			coll.records = append(coll.records[:i], coll.records[i+1:]...)
			return true
		}
	}
	return false
}

func cloneMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
