package biz

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cartelera/signage-backend/internal/content/types"
	apperrors "github.com/cartelera/signage-backend/internal/pkg/errors"
	"github.com/cartelera/signage-backend/internal/pkg/logger"
	"github.com/cartelera/signage-backend/internal/pkg/workerpool"
)

// Broadcast event names, one per stage topic
const (
	EventImagesUpdated       = "images_updated"
	EventMonitoringUpdated   = "monitoring_updated"
	EventMobileImagesUpdated = "mobile_images_updated"
)

// ContentUseCase is the lifecycle engine: the sole mutation surface for
// the stage collections and the upload ledger. Every operation performs
// its blob I/O first, mutates the in-memory collection under the stage
// lock, and then publishes the post-mutation snapshot of the affected
// stage.
type ContentUseCase struct {
	registry  *StageRegistry
	ledger    *UploadLedger
	store     BlobStore
	publisher Publisher
	pool      *workerpool.Pool
	logger    *logger.Logger

	idMu   sync.Mutex
	lastID int64
}

// NewContentUseCase wires the engine
func NewContentUseCase(
	registry *StageRegistry,
	ledger *UploadLedger,
	store BlobStore,
	publisher Publisher,
	pool *workerpool.Pool,
	lgr *logger.Logger,
) *ContentUseCase {
	if lgr == nil {
		lgr = logger.L()
	}
	return &ContentUseCase{
		registry:  registry,
		ledger:    ledger,
		store:     store,
		publisher: publisher,
		pool:      pool,
		logger:    lgr,
	}
}

// Registry exposes read access to the stage collections
func (uc *ContentUseCase) Registry() *StageRegistry {
	return uc.registry
}

// Ledger exposes read access to the upload status ledger
func (uc *ContentUseCase) Ledger() *UploadLedger {
	return uc.ledger
}

// MonitoringState builds the combined monitoring payload sent to
// observers: the stage snapshot plus the upload ledger.
func (uc *ContentUseCase) MonitoringState() map[string]interface{} {
	return map[string]interface{}{
		"monitoringImages": uc.registry.Snapshot(types.StageMonitoring),
		"uploadStatus":     uc.ledger.List(),
	}
}

// Ingest writes a fresh upload into the uploads namespace and indexes
// it. The blob write happens before any collection mutation; on write
// failure no record exists anywhere.
func (uc *ContentUseCase) Ingest(ctx context.Context, req types.IngestRequest) (types.ContentRecord, error) {
	id := uc.nextID()

	sanitized := SanitizeFilename(req.OriginalFilename)
	if sanitized == "" {
		sanitized = "upload"
	}
	key := EncodeKey(types.StageUploads, id, sanitized)

	if err := uc.store.Write(ctx, string(types.StageUploads), key, req.Body, req.Size, req.ContentType); err != nil {
		return types.ContentRecord{}, apperrors.Wrap(err, apperrors.ErrStorageWrite, key)
	}

	now := time.Now()
	title := req.Title
	if title == "" {
		title = decodedTitle(req.OriginalFilename)
	}

	metadata := cloneMetadata(req.Metadata)
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	if req.Size > 0 {
		metadata["size"] = req.Size
	}
	if req.ContentType != "" {
		metadata["mimetype"] = req.ContentType
	}
	// System fields win on key collision with caller metadata.
	metadata["uploadedAt"] = now.Format(time.RFC3339)

	record := types.ContentRecord{
		ID:         id,
		Title:      title,
		ImageURL:   uc.registry.FileURL(types.StageUploads, key),
		Path:       string(types.StageUploads) + "/" + key,
		Type:       "image",
		Status:     "active",
		Metadata:   metadata,
		UploadedAt: now,
	}

	uc.registry.append(types.StageUploads, record)
	uc.broadcast(types.StageUploads)

	uc.logger.Info("content ingested",
		zap.String("id", id),
		zap.String("key", key),
		zap.Int64("size", req.Size),
	)

	return record, nil
}

// Promote copies an asset's bytes and metadata from one stage to
// another under a new stage-local identity. The source stage is never
// mutated: stages are independent copies, not a move. The copy is
// all-or-nothing; on failure both stages are unchanged.
func (uc *ContentUseCase) Promote(ctx context.Context, req types.PromoteRequest) (types.ContentRecord, error) {
	if !req.SourceStage.Valid() || !req.TargetStage.Valid() {
		return types.ContentRecord{}, apperrors.New(apperrors.ErrInvalidStage)
	}
	if req.SourceStage == req.TargetStage {
		return types.ContentRecord{}, apperrors.New(apperrors.ErrInvalidParams, "source and target stage are the same")
	}

	source, ok := uc.registry.Find(req.SourceStage, req.SourceID)
	if !ok {
		return types.ContentRecord{}, apperrors.NewNotFoundError(req.SourceID)
	}

	srcKey := storedKey(source)

	// The in-memory index can be stale relative to the store; verify
	// the source blob before copying.
	exists, err := uc.store.Exists(ctx, string(req.SourceStage), srcKey)
	if err != nil {
		return types.ContentRecord{}, apperrors.Wrap(err, apperrors.ErrStorageRead, srcKey)
	}
	if !exists {
		return types.ContentRecord{}, apperrors.New(apperrors.ErrSourceBlobMissing, srcKey)
	}

	id := req.ID
	if id == "" {
		id = fmt.Sprintf("%s_%s", req.TargetStage, uc.nextID())
	}

	targetKey := id + "_" + srcKey

	if err := uc.store.Copy(ctx, string(req.SourceStage), srcKey, string(req.TargetStage), targetKey); err != nil {
		return types.ContentRecord{}, apperrors.Wrap(err, apperrors.ErrStorageCopy, targetKey)
	}

	now := time.Now()
	title := req.Title
	if title == "" {
		title = source.Title
	}
	if title == "" {
		title = srcKey
	}

	contentType := req.Type
	if contentType == "" {
		contentType = source.Type
	}
	if contentType == "" {
		contentType = "image"
	}

	metadata := cloneMetadata(req.Metadata)
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	metadata["originalPath"] = source.ImageURL
	metadata["uploadedAt"] = now.Format(time.RFC3339)

	record := types.ContentRecord{
		ID:         id,
		Title:      title,
		ImageURL:   uc.registry.FileURL(req.TargetStage, targetKey),
		Path:       string(req.TargetStage) + "/" + targetKey,
		Type:       contentType,
		Status:     "active",
		Metadata:   metadata,
		UploadedAt: now,
	}

	uc.registry.append(req.TargetStage, record)

	if req.TargetStage == types.StageMonitoring {
		_, _ = uc.ledger.Upsert(types.UploadStatusEntry{
			ID:        id,
			FileName:  srcKey,
			Status:    "active",
			Timestamp: now,
			Type:      "image",
			Progress:  100,
		})
	}

	uc.broadcast(req.TargetStage)

	uc.logger.Info("content promoted",
		zap.String("source_stage", string(req.SourceStage)),
		zap.String("target_stage", string(req.TargetStage)),
		zap.String("source_id", req.SourceID),
		zap.String("id", id),
	)

	return record, nil
}

// SetStatus replaces a record's status and stamps lastUpdated and
// previousStatus in its metadata. Setting the same status twice is a
// valid no-op transition: timestamps are refreshed and the snapshot is
// still broadcast, which lets operators bump "last seen" without a
// value change.
func (uc *ContentUseCase) SetStatus(ctx context.Context, stage types.Stage, id, status string) (types.ContentRecord, error) {
	if !stage.Valid() {
		return types.ContentRecord{}, apperrors.New(apperrors.ErrInvalidStage)
	}
	if status == "" {
		return types.ContentRecord{}, apperrors.NewValidationError("status")
	}

	now := time.Now()

	record, ok := uc.registry.update(stage, id, func(rec *types.ContentRecord) {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]interface{})
		}
		rec.Metadata["previousStatus"] = rec.Status
		rec.Metadata["lastUpdated"] = now.Format(time.RFC3339Nano)
		rec.Status = status
		rec.UpdatedAt = now
	})
	if !ok {
		return types.ContentRecord{}, apperrors.NewNotFoundError(id)
	}

	if stage == types.StageMonitoring {
		entry := types.UploadStatusEntry{
			ID:        id,
			Status:    status,
			Timestamp: now,
		}
		if !uc.ledger.Has(id) {
			// First reference: reconcile by creating a completed entry.
			entry.FileName = record.Title
			entry.Type = "image"
			entry.Progress = 100
		}
		_, _ = uc.ledger.Upsert(entry)
	}

	uc.broadcast(stage)

	return record, nil
}

// Remove deletes the record and its backing blob. A blob that is
// already gone is not an error: the record is removed regardless, which
// heals earlier partial failures. Any other blob deletion failure is
// reported as a warning while the record is still removed, so the index
// never keeps an entry the UI cannot act on.
func (uc *ContentUseCase) Remove(ctx context.Context, stage types.Stage, id string) (types.RemoveResult, error) {
	if !stage.Valid() {
		return types.RemoveResult{}, apperrors.New(apperrors.ErrInvalidStage)
	}

	record, ok := uc.registry.Find(stage, id)
	if !ok {
		return types.RemoveResult{}, apperrors.NewNotFoundError(id)
	}

	result := types.RemoveResult{ID: id}

	err := uc.store.Delete(ctx, string(stage), storedKey(record))
	switch {
	case err == nil:
		result.BlobDeleted = true
	case errors.Is(err, ErrBlobNotFound):
		uc.logger.Warn("backing blob already absent, removing record anyway",
			zap.String("stage", string(stage)),
			zap.String("id", id),
		)
	default:
		result.Warning = apperrors.Wrap(err, apperrors.ErrStorageDelete, id).Error()
		uc.logger.Error("blob deletion failed, removing record anyway",
			zap.String("stage", string(stage)),
			zap.String("id", id),
			zap.Error(err),
		)
	}

	result.Removed = uc.registry.remove(stage, id)

	if stage == types.StageMonitoring {
		uc.ledger.Remove(id)
	}

	uc.broadcast(stage)

	return result, nil
}

// RemoveBatch applies Remove to each id independently: one failing
// deletion never aborts the rest. Blob I/O fans out on the worker pool
// while each collection mutation stays serialized behind the stage
// lock. The per-id results are positionally aligned with ids.
func (uc *ContentUseCase) RemoveBatch(ctx context.Context, stage types.Stage, ids []string) (types.BatchRemoveResult, error) {
	if !stage.Valid() {
		return types.BatchRemoveResult{}, apperrors.New(apperrors.ErrInvalidStage)
	}
	if len(ids) == 0 {
		return types.BatchRemoveResult{}, apperrors.NewValidationError("ids")
	}

	results := make([]types.BatchRemoveItem, len(ids))
	tasks := make([]func(), len(ids))

	for i, id := range ids {
		i, id := i, id
		tasks[i] = func() {
			res, err := uc.Remove(ctx, stage, id)
			if err != nil {
				results[i] = types.BatchRemoveItem{ID: id, Error: apperrors.GetDetails(err)}
				return
			}
			results[i] = types.BatchRemoveItem{ID: id, Success: true}
			if res.Warning != "" {
				results[i].Error = res.Warning
			}
		}
	}

	uc.pool.SubmitWait(tasks)

	success := 0
	for _, r := range results {
		if r.Success {
			success++
		}
	}

	uc.logger.Info("batch removal finished",
		zap.String("stage", string(stage)),
		zap.Int("requested", len(ids)),
		zap.Int("removed", success),
	)

	return types.BatchRemoveResult{
		Results:      results,
		SuccessCount: success,
		Total:        len(ids),
	}, nil
}

// broadcast publishes the post-mutation snapshot of a stage to its
// topic. Publishing is fire-and-forget; a slow observer never stalls
// the mutation that triggered it.
func (uc *ContentUseCase) broadcast(stage types.Stage) {
	switch stage {
	case types.StageUploads:
		uc.publisher.Publish(string(stage), EventImagesUpdated, uc.registry.Snapshot(stage))
	case types.StageMonitoring:
		uc.publisher.Publish(string(stage), EventMonitoringUpdated, uc.MonitoringState())
	case types.StageMobile:
		uc.publisher.Publish(string(stage), EventMobileImagesUpdated, uc.registry.Snapshot(stage))
	}
}

// nextID allocates a millisecond-timestamp id, bumping past the last
// issued value so ids in the same millisecond never collide.
func (uc *ContentUseCase) nextID() string {
	uc.idMu.Lock()
	defer uc.idMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= uc.lastID {
		now = uc.lastID + 1
	}
	uc.lastID = now
	return strconv.FormatInt(now, 10)
}

// storedKey recovers the object key from a record's derived path
func storedKey(rec types.ContentRecord) string {
	if idx := strings.Index(rec.Path, "/"); idx >= 0 {
		return rec.Path[idx+1:]
	}
	return path.Base(rec.Path)
}

// decodedTitle derives a display title from the original filename
func decodedTitle(filename string) string {
	if filename == "" {
		return "untitled"
	}
	if decoded, err := url.QueryUnescape(filename); err == nil && decoded != "" {
		return decoded
	}
	return filename
}
