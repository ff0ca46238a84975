package prompts

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sergey0107/verification-products/internal/shared/server/respond"
)

// Handler serves a Store over HTTP.
type Handler struct {
	Store *Store
}

// NewHandler constructs a prompt registry handler.
func NewHandler(store *Store) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes wires prompt registry routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/prompts", h.list)
	rg.GET("/prompts/:file_type", h.get)
}

func (h *Handler) list(c *gin.Context) {
	respond.OK(c, gin.H{"types": h.Store.Types()})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Store.Get(c.Request.Context(), c.Param("file_type"))
	if err != nil {
		if errors.Is(err, ErrUnknownType) {
			respond.Error(c, http.StatusNotFound, "not_found", "Unknown file_type", gin.H{"file_type": c.Param("file_type")})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal", "Failed to load prompt", nil)
		return
	}
	respond.OK(c, gin.H{"prompt": p.Prompt, "schema": p.Schema})
}
