package extraction

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Sergey0107/verification-products/internal/shared/server/respond"
)

type extractRequest struct {
	Files []File `json:"files"`
}

// Handler exposes the extraction trigger.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches extraction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses/:id/extract", h.startExtraction)
}

func (h *Handler) startExtraction(c *gin.Context) {
	analysisID := c.Param("id")
	if _, err := uuid.Parse(analysisID); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id must be a uuid", nil)
		return
	}

	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	var issues []map[string]string
	for _, f := range req.Files {
		if strings.TrimSpace(f.ID) == "" {
			issues = append(issues, map[string]string{"field": "file_id", "issue": "required"})
		}
		if strings.TrimSpace(f.StoragePath) == "" && strings.TrimSpace(f.StorageURL) == "" {
			issues = append(issues, map[string]string{"field": "storage_path", "issue": "required"})
		}
	}
	if len(issues) > 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid files", issues)
		return
	}

	enqueued, err := h.Svc.Enqueue(c.Request.Context(), analysisID, req.Files, c.GetString("requestId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFiles), errors.Is(err, ErrUnknownFileType):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start extraction", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": analysisID,
		"jobs":       enqueued,
	})
}
