package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/backstage/services/pickaudit/internal/analysis"
	"example.com/backstage/services/pickaudit/internal/models"
	"example.com/backstage/services/pickaudit/internal/search"
	"example.com/backstage/services/pickaudit/internal/services"
	"example.com/backstage/services/pickaudit/internal/tracing"
)

// AnalysisService runs and serves analyses
type AnalysisService interface {
	Run(ctx context.Context, req *models.AnalysisRequest, trigger string) (*services.RunSummary, error)
	Report(ctx context.Context, id uuid.UUID) (*analysis.Report, error)
	Deliveries(ctx context.Context, id uuid.UUID, minOverPick int) ([]models.DeliveryResult, error)
	Audit(ctx context.Context, id uuid.UUID, deliveryID, transferOrder string) ([]analysis.AuditEntry, error)
	Search(ctx context.Context, q search.DeliveryQuery) ([]search.DeliveryDocument, error)
}

// AnalysisHandler handles analysis requests
type AnalysisHandler struct {
	service AnalysisService
	tracer  tracing.Tracer
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisService, tracer tracing.Tracer) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		tracer:  tracer,
	}
}

// HandleRun starts an analysis over the latest datasets. An empty body runs
// with the configured defaults.
func (h *AnalysisHandler) HandleRun(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-run-analysis")
	defer h.tracer.EndTransaction(txn)

	var req *models.AnalysisRequest
	if c.Request.ContentLength != 0 {
		req = &models.AnalysisRequest{}
		if err := c.ShouldBindJSON(req); errors.Is(err, io.EOF) {
			req = nil
		} else if err != nil {
			h.tracer.RecordError(txn, err)
			WriteError(c, NewValidationError(err.Error()))
			return
		}
	}

	summary, err := h.service.Run(c.Request.Context(), req, services.TriggerAPI)
	if err != nil {
		h.tracer.RecordError(txn, err)
		WriteError(c, err)
		return
	}

	h.tracer.AddAttribute(txn, "run_id", summary.RunID.String())
	h.tracer.AddAttribute(txn, "cached", summary.Cached)
	status := http.StatusCreated
	if summary.Cached {
		status = http.StatusOK
	}
	c.JSON(status, summary)
}

// HandleGetReport returns the full report of a run
func (h *AnalysisHandler) HandleGetReport(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	report, err := h.service.Report(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleListDeliveries returns the stored delivery results of a run
func (h *AnalysisHandler) HandleListDeliveries(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	minOverPick, ok := intQuery(c, "min_over_pick", 0)
	if !ok {
		return
	}

	results, err := h.service.Deliveries(c.Request.Context(), id, minOverPick)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "count": len(results), "deliveries": results})
}

// HandleAudit explains the moves of every line of a delivery or transfer
// order
func (h *AnalysisHandler) HandleAudit(c *gin.Context) {
	id, ok := runID(c)
	if !ok {
		return
	}
	delivery := c.Query("delivery")
	transferOrder := c.Query("transfer_order")
	if delivery == "" && transferOrder == "" {
		WriteError(c, NewValidationError("delivery or transfer_order is required"))
		return
	}

	entries, err := h.service.Audit(c.Request.Context(), id, delivery, transferOrder)
	if err != nil {
		WriteError(c, err)
		return
	}
	if len(entries) == 0 {
		WriteError(c, NewError("No pick lines match", http.StatusNotFound, "NO_LINES"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": id, "lines": entries})
}

// HandleSearch queries indexed delivery records
func (h *AnalysisHandler) HandleSearch(c *gin.Context) {
	minOverPick, ok := intQuery(c, "min_over_pick", 0)
	if !ok {
		return
	}
	size, ok := intQuery(c, "size", 0)
	if !ok {
		return
	}

	docs, err := h.service.Search(c.Request.Context(), search.DeliveryQuery{
		RunID:       c.Query("run_id"),
		Category:    c.Query("category"),
		MinOverPick: minOverPick,
		Size:        size,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(docs), "deliveries": docs})
}

// RegisterRoutes registers the handler's routes
func (h *AnalysisHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/analyses", h.HandleRun)
	router.GET("/analyses/:id", h.HandleGetReport)
	router.GET("/analyses/:id/deliveries", h.HandleListDeliveries)
	router.GET("/analyses/:id/audit", h.HandleAudit)
	router.GET("/search/deliveries", h.HandleSearch)
}

func runID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, NewValidationError("invalid run id"))
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		WriteError(c, NewValidationError(name+" must be a non-negative integer"))
		return 0, false
	}
	return v, true
}
