package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"example.com/backstage/services/pickaudit/internal/ingest"
	"example.com/backstage/services/pickaudit/internal/models"
	"example.com/backstage/services/pickaudit/internal/tracing"
)

// DatasetService stores uploaded tables
type DatasetService interface {
	Upload(ctx context.Context, kind, filename string, content []byte) (*models.Dataset, error)
	Latest(ctx context.Context) ([]models.Dataset, error)
}

// DatasetHandler handles dataset uploads
type DatasetHandler struct {
	service       DatasetService
	tracer        tracing.Tracer
	maxUploadSize int64
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetService, tracer tracing.Tracer, maxUploadSize int64) *DatasetHandler {
	return &DatasetHandler{
		service:       service,
		tracer:        tracer,
		maxUploadSize: maxUploadSize,
	}
}

// DatasetResponse represents a stored dataset
type DatasetResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Filename    string `json:"filename,omitempty"`
	Rows        int    `json:"rows"`
	ContentHash string `json:"content_hash"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func newDatasetResponse(d models.Dataset) DatasetResponse {
	resp := DatasetResponse{
		ID:          d.ID.String(),
		Kind:        d.Kind,
		Filename:    d.Filename,
		Rows:        d.Rows,
		ContentHash: d.ContentHash,
	}
	if !d.CreatedAt.IsZero() {
		resp.CreatedAt = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// HandleUpload accepts a CSV either as multipart field "file" or as the raw
// request body
func (h *DatasetHandler) HandleUpload(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-upload-dataset")
	defer h.tracer.EndTransaction(txn)

	kind := c.Param("kind")
	h.tracer.AddAttribute(txn, "kind", kind)

	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	filename, content, err := readUpload(c)
	if err != nil {
		h.tracer.RecordError(txn, err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(c, ErrPayloadTooLarge)
			return
		}
		WriteError(c, NewValidationError(err.Error()))
		return
	}
	if len(content) == 0 {
		WriteError(c, NewValidationError("empty upload"))
		return
	}

	dataset, err := h.service.Upload(c.Request.Context(), kind, filename, content)
	if err != nil {
		h.tracer.RecordError(txn, err)
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newDatasetResponse(*dataset))
}

// HandleLatest lists the newest dataset of every kind
func (h *DatasetHandler) HandleLatest(c *gin.Context) {
	datasets, err := h.service.Latest(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}

	resp := make([]DatasetResponse, len(datasets))
	for i, d := range datasets {
		resp[i] = newDatasetResponse(d)
	}
	c.JSON(http.StatusOK, gin.H{"datasets": resp, "kinds": ingest.Kinds()})
}

// RegisterRoutes registers the handler's routes
func (h *DatasetHandler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/datasets/:kind", h.HandleUpload)
	router.GET("/datasets", h.HandleLatest)
}

func readUpload(c *gin.Context) (string, []byte, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		content, err := io.ReadAll(c.Request.Body)
		return c.Query("filename"), content, err
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return "", nil, errors.Wrap(err, "multipart field file")
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	return header.Filename, content, err
}
