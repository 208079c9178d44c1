package service

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartelera/signage-backend/internal/content/biz"
	"github.com/cartelera/signage-backend/internal/content/types"
	apperrors "github.com/cartelera/signage-backend/internal/pkg/errors"
	"github.com/cartelera/signage-backend/internal/pkg/response"
)

// RegisterFileRoutes mounts the raw blob endpoint outside the /api group
func (s *ContentService) RegisterFileRoutes(r gin.IRouter) {
	r.GET("/files/:stage/*key", s.ServeFile)
}

// ServeFile streams a stored blob. The key in the URL is the object key
// within the stage namespace, percent-decoded by the router.
func (s *ContentService) ServeFile(c *gin.Context) {
	stage, err := types.ParseStage(c.Param("stage"))
	if err != nil {
		response.ErrorWithCode(c, apperrors.ErrInvalidStage, c.Param("stage"))
		return
	}

	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "/") {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "invalid object key")
		return
	}

	body, err := s.store.Read(c.Request.Context(), string(stage), key)
	if err != nil {
		if errors.Is(err, biz.ErrBlobNotFound) {
			response.ErrorWithCode(c, apperrors.ErrNotFound, key)
			return
		}
		s.logger.Error("blob read failed",
			zap.String("stage", string(stage)),
			zap.String("key", key),
			zap.Error(err),
		)
		response.ErrorWithCode(c, apperrors.ErrStorageRead)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=3600")
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, body); err != nil {
		s.logger.Warn("blob stream interrupted",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
