package service

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cartelera/signage-backend/internal/conf"
	"github.com/cartelera/signage-backend/internal/content/biz"
	"github.com/cartelera/signage-backend/internal/content/types"
	apperrors "github.com/cartelera/signage-backend/internal/pkg/errors"
	"github.com/cartelera/signage-backend/internal/pkg/logger"
	"github.com/cartelera/signage-backend/internal/pkg/response"
	"github.com/cartelera/signage-backend/internal/pkg/sse"
)

// ContentService is the HTTP request layer in front of the lifecycle
// engine. It owns request validation, MIME allow-listing and size
// limits, and maps engine results to responses mechanically.
type ContentService struct {
	uc     *biz.ContentUseCase
	store  biz.BlobStore
	hub    *sse.Hub
	cfg    conf.ContentConfig
	logger *logger.Logger
}

// NewContentService creates the service
func NewContentService(uc *biz.ContentUseCase, store biz.BlobStore, hub *sse.Hub, cfg conf.ContentConfig, lgr *logger.Logger) *ContentService {
	if lgr == nil {
		lgr = logger.L()
	}
	return &ContentService{
		uc:     uc,
		store:  store,
		hub:    hub,
		cfg:    cfg,
		logger: lgr,
	}
}

// RegisterRoutes registers the API surface
func (s *ContentService) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/upload", s.Upload)
	r.GET("/images", s.ListUploads)
	r.DELETE("/images/:id", s.DeleteUpload)

	r.GET("/monitoring/images", s.ListMonitoring)
	r.POST("/monitoring/images", s.PromoteToMonitoring)
	r.PATCH("/monitoring/images/:id", s.UpdateMonitoringStatus)
	r.DELETE("/monitoring/:id", s.DeleteMonitoring)
	r.POST("/monitoring/delete-multiple", s.DeleteMonitoringBatch)
	r.GET("/monitoring/status", s.ListUploadStatus)

	r.GET("/mobile/images", s.ListMobile)
	r.POST("/mobile/images", s.PromoteToMobile)
	r.POST("/mobile/publish", s.PublishToMobile)
	r.DELETE("/mobile/unpublish/:id", s.DeleteMobile)

	r.GET("/events", s.Events)
}

// Upload handles a multipart image upload into the uploads stage
func (s *ContentService) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > s.cfg.MaxUploadBytes {
		response.ErrorWithCode(c, apperrors.ErrFileTooLarge)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !s.mimeAllowed(contentType) {
		response.ErrorWithCode(c, apperrors.ErrInvalidFileType, contentType)
		return
	}

	record, err := s.uc.Ingest(c.Request.Context(), types.IngestRequest{
		OriginalFilename: header.Filename,
		Title:            c.PostForm("title"),
		ContentType:      contentType,
		Size:             header.Size,
		Body:             file,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, record)
}

// ListUploads returns the uploads stage snapshot
func (s *ContentService) ListUploads(c *gin.Context) {
	response.Success(c, s.uc.Registry().Snapshot(types.StageUploads))
}

// DeleteUpload removes an uploads-stage record and its blob
func (s *ContentService) DeleteUpload(c *gin.Context) {
	s.remove(c, types.StageUploads)
}

// ListMonitoring returns the monitoring stage snapshot
func (s *ContentService) ListMonitoring(c *gin.Context) {
	response.Success(c, s.uc.Registry().Snapshot(types.StageMonitoring))
}

type promoteRequest struct {
	ID       string                 `json:"id"`
	SourceID string                 `json:"sourceId"`
	ImageURL string                 `json:"imageUrl"`
	Title    string                 `json:"title"`
	Type     string                 `json:"type"`
	Metadata map[string]interface{} `json:"metadata"`
}

// sourceID resolves which source record the caller means. Older
// dashboard clients send only "id" (reused as the target identity).
func (p *promoteRequest) sourceID() string {
	if p.SourceID != "" {
		return p.SourceID
	}
	return p.ID
}

// PromoteToMonitoring copies an uploads-stage asset into monitoring
func (s *ContentService) PromoteToMonitoring(c *gin.Context) {
	s.promote(c, types.StageUploads, types.StageMonitoring)
}

// PromoteToMobile copies a monitoring-stage asset into mobile
func (s *ContentService) PromoteToMobile(c *gin.Context) {
	s.promote(c, types.StageMonitoring, types.StageMobile)
}

func (s *ContentService) promote(c *gin.Context, source, target types.Stage) {
	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	if req.sourceID() == "" {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "id or sourceId is required")
		return
	}

	record, err := s.uc.Promote(c.Request.Context(), types.PromoteRequest{
		SourceStage: source,
		TargetStage: target,
		SourceID:    req.sourceID(),
		ID:          req.ID,
		Title:       req.Title,
		Type:        req.Type,
		Metadata:    req.Metadata,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, record)
}

type publishRequest struct {
	ImageID string `json:"imageId" binding:"required"`
}

// PublishToMobile copies a monitoring-stage asset into mobile under a
// freshly assigned mobile identity
func (s *ContentService) PublishToMobile(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	record, err := s.uc.Promote(c.Request.Context(), types.PromoteRequest{
		SourceStage: types.StageMonitoring,
		TargetStage: types.StageMobile,
		SourceID:    req.ImageID,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, record)
}

// ListMobile returns the mobile stage snapshot
func (s *ContentService) ListMobile(c *gin.Context) {
	response.Success(c, s.uc.Registry().Snapshot(types.StageMobile))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateMonitoringStatus replaces a monitoring record's status
func (s *ContentService) UpdateMonitoringStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, err.Error())
		return
	}

	record, err := s.uc.SetStatus(c.Request.Context(), types.StageMonitoring, c.Param("id"), req.Status)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"image":  record,
		"status": record.Status,
	})
}

// DeleteMonitoring removes a monitoring-stage record and its blob
func (s *ContentService) DeleteMonitoring(c *gin.Context) {
	s.remove(c, types.StageMonitoring)
}

// DeleteMobile removes a mobile-stage record and its blob
func (s *ContentService) DeleteMobile(c *gin.Context) {
	s.remove(c, types.StageMobile)
}

func (s *ContentService) remove(c *gin.Context, stage types.Stage) {
	result, err := s.uc.Remove(c.Request.Context(), stage, c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, result)
}

type batchDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// DeleteMonitoringBatch removes several monitoring records, isolating
// failures per id. Callers must inspect the per-id results.
func (s *ContentService) DeleteMonitoringBatch(c *gin.Context) {
	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "an array of ids is required")
		return
	}

	result, err := s.uc.RemoveBatch(c.Request.Context(), types.StageMonitoring, req.IDs)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, result)
}

// ListUploadStatus returns the upload status ledger
func (s *ContentService) ListUploadStatus(c *gin.Context) {
	response.Success(c, s.uc.Ledger().List())
}

func (s *ContentService) mimeAllowed(contentType string) bool {
	for _, allowed := range s.cfg.AllowedMIMETypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

// Health reports service liveness
func (s *ContentService) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
