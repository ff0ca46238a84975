package analyses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Sergey0107/verification-products/internal/report"
	"github.com/Sergey0107/verification-products/internal/shared/server/respond"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler exposes analysis status and stored comparison rows.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/analyses/:id/comparison", h.getComparison)
	rg.GET("/analyses/:id/comparison.xlsx", h.exportComparison)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	analysis, ok := h.load(c)
	if !ok {
		return
	}
	respond.OK(c, analysis)
}

func (h *Handler) getComparison(c *gin.Context) {
	analysis, ok := h.load(c)
	if !ok {
		return
	}
	rows, err := h.Repo.ListRows(c.Request.Context(), analysis.ID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch comparison", nil)
		return
	}
	respond.OK(c, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
		"match":      ResultFromRows(rows).Match,
		"rows":       rows,
	})
}

func (h *Handler) exportComparison(c *gin.Context) {
	analysis, ok := h.load(c)
	if !ok {
		return
	}
	if analysis.Status != StatusReady {
		respond.Error(c, http.StatusConflict, "not_ready", "comparison is not ready", gin.H{"status": analysis.Status})
		return
	}
	rows, err := h.Repo.ListRows(c.Request.Context(), analysis.ID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch comparison", nil)
		return
	}
	data, err := report.XLSX(ResultFromRows(rows))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="comparison-`+analysis.ID+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) load(c *gin.Context) (Analysis, bool) {
	analysisID := c.Param("id")
	if _, err := uuid.Parse(analysisID); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id must be a uuid", nil)
		return Analysis{}, false
	}
	analysis, err := h.Repo.Get(c.Request.Context(), analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return Analysis{}, false
	}
	return analysis, true
}
