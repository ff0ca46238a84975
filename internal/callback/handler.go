package callback

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Sergey0107/verification-products/internal/analyses"
	"github.com/Sergey0107/verification-products/internal/comparison"
	"github.com/Sergey0107/verification-products/internal/shared/server/respond"
	"github.com/Sergey0107/verification-products/internal/shared/telemetry"
)

type payload struct {
	JobID      string         `json:"job_id"`
	AnalysisID string         `json:"analysis_id"`
	Status     string         `json:"status"`
	Result     *resultPayload `json:"result"`
	Error      string         `json:"error"`
}

type resultPayload struct {
	Match       bool             `json:"match"`
	Summary     string           `json:"summary"`
	Comparisons []map[string]any `json:"comparisons"`
}

// Handler receives comparison notifications and stores the verdict rows.
// It never touches job rows.
type Handler struct {
	Analyses analyses.Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo analyses.Repo) *Handler {
	return &Handler{Analyses: repo}
}

// RegisterRoutes attaches the callback route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/compare/callback", h.receive)
}

func (h *Handler) receive(c *gin.Context) {
	var p payload
	if err := c.ShouldBindJSON(&p); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if _, err := uuid.Parse(p.JobID); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid ids", nil)
		return
	}
	if _, err := uuid.Parse(p.AnalysisID); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid ids", nil)
		return
	}
	if p.Status != comparison.NotifySucceeded && p.Status != comparison.NotifyFailed {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid status", nil)
		return
	}

	n := comparison.Notification{
		JobID:      p.JobID,
		AnalysisID: p.AnalysisID,
		Status:     p.Status,
		Error:      p.Error,
	}
	if p.Result != nil {
		n.Result = &comparison.Result{
			Match:       p.Result.Match,
			Summary:     p.Result.Summary,
			Comparisons: rowsFromPayload(p.Result.Comparisons),
		}
	}
	if err := Apply(c.Request.Context(), h.Analyses, n); err != nil {
		switch {
		case errors.Is(err, analyses.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store comparison", nil)
		}
		return
	}

	telemetry.Info("callback.received", map[string]any{
		"job_id":      p.JobID,
		"analysis_id": p.AnalysisID,
		"status":      p.Status,
		"error":       p.Error,
	})
	respond.OK(c, gin.H{"ok": true})
}

func rowsFromPayload(items []map[string]any) []comparison.Row {
	rows := make([]comparison.Row, 0, len(items))
	for _, item := range items {
		characteristic := ""
		if v := textValue(item["characteristic"]); v != nil {
			characteristic = *v
		}
		isMatch, _ := item["is_match"].(bool)
		rows = append(rows, comparison.Row{
			Characteristic: characteristic,
			TZValue:        textValue(item["tz_value"]),
			PassportValue:  textValue(item["passport_value"]),
			TZQuote:        textValue(item["tz_quote"]),
			PassportQuote:  textValue(item["passport_quote"]),
			IsMatch:        isMatch,
			Note:           textValue(item["note"]),
		})
	}
	return rows
}

func textValue(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}
