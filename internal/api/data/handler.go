// Package data exposes dataset and report operations, proxying the remote
// connector and caching what can be served while it is unreachable.
package data

import (
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cloakedsheets/internal/connector"
	"cloakedsheets/internal/conversation"
	"cloakedsheets/internal/domain"
	"cloakedsheets/internal/repository"
)

const maxUploadBytes = 32 << 20

// Handler handles dataset and report requests.
type Handler struct {
	client        connector.Client
	processor     *conversation.Processor
	reports       *repository.ReportRepository
	conversations *repository.ConversationRepository
	logger        *zap.Logger

	mu       sync.Mutex
	catalogs map[string]*domain.DatasetCatalog
}

// NewHandler creates a new data handler. reports and conversations may be nil.
func NewHandler(client connector.Client, processor *conversation.Processor,
	reports *repository.ReportRepository, conversations *repository.ConversationRepository,
	logger *zap.Logger) *Handler {
	return &Handler{
		client:        client,
		processor:     processor,
		reports:       reports,
		conversations: conversations,
		logger:        logger,
		catalogs:      make(map[string]*domain.DatasetCatalog),
	}
}

// RegisterRoutes registers dataset and report routes
func (h *Handler) RegisterRoutes(datasets, reports *gin.RouterGroup) {
	datasets.GET("", h.ListDatasets)
	datasets.POST("/register", h.Register)
	datasets.POST("/upload", h.Upload)
	datasets.POST("/:id/ingest", h.Ingest)
	datasets.GET("/:id/catalog", h.Catalog)
	datasets.POST("/:id/activate", h.Activate)

	reports.GET("", h.ListReports)
	reports.GET("/:id", h.GetReport)
}

// ListDatasets lists the datasets known to the connector.
func (h *Handler) ListDatasets(c *gin.Context) {
	datasets, err := h.client.ListDatasets(c.Request.Context())
	if err != nil {
		writeConnectorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"datasets": datasets,
		"activeId": h.processor.DatasetID(),
	})
}

// Register registers an external dataset source with the connector.
func (h *Handler) Register(c *gin.Context) {
	var req domain.RegisterDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset, err := h.client.RegisterDataset(c.Request.Context(), req)
	if err != nil {
		writeConnectorError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dataset)
}

// Upload forwards an uploaded file to the connector as a new dataset.
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset, err := h.client.UploadDataset(c.Request.Context(), file.Filename, content)
	if err != nil {
		writeConnectorError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dataset)
}

// Ingest triggers (re)ingestion of a dataset. The cached catalog is stale
// afterwards and dropped.
func (h *Handler) Ingest(c *gin.Context) {
	id := c.Param("id")
	result, err := h.client.IngestDataset(c.Request.Context(), id)
	if err != nil {
		writeConnectorError(c, err)
		return
	}

	h.mu.Lock()
	delete(h.catalogs, id)
	h.mu.Unlock()

	c.JSON(http.StatusOK, result)
}

// InvalidateCatalogs drops every cached catalog. Called on connector
// disconnect so nothing stale survives a backend that changed while it
// was away.
func (h *Handler) InvalidateCatalogs() {
	h.mu.Lock()
	h.catalogs = make(map[string]*domain.DatasetCatalog)
	h.mu.Unlock()
}

// Catalog returns the dataset's schema catalog, served from cache when the
// connector already answered for this dataset.
func (h *Handler) Catalog(c *gin.Context) {
	id := c.Param("id")

	h.mu.Lock()
	cached, ok := h.catalogs[id]
	h.mu.Unlock()
	if ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	catalog, err := h.client.GetDatasetCatalog(c.Request.Context(), id)
	if err != nil {
		writeConnectorError(c, err)
		return
	}

	h.mu.Lock()
	h.catalogs[id] = catalog
	h.mu.Unlock()

	c.JSON(http.StatusOK, catalog)
}

// Activate switches the active dataset of the conversation. Any in-flight
// turn is canceled by the switch, and the catalog is re-fetched fresh on
// the next request.
func (h *Handler) Activate(c *gin.Context) {
	id := c.Param("id")
	h.processor.SetDataset(id)

	h.mu.Lock()
	delete(h.catalogs, id)
	h.mu.Unlock()

	if h.conversations != nil {
		if err := h.conversations.Touch(h.processor.ConversationID(), id); err != nil {
			h.logger.Warn("failed to persist dataset switch", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"activeId": id})
}

// ListReports lists reports from the connector, falling back to the local
// cache when it is unreachable.
func (h *Handler) ListReports(c *gin.Context) {
	reports, err := h.client.ListReports(c.Request.Context())
	if err == nil {
		h.cacheReports(reports)
		c.JSON(http.StatusOK, gin.H{"reports": reports})
		return
	}

	if h.reports == nil {
		writeConnectorError(c, err)
		return
	}
	h.logger.Warn("connector unreachable, serving cached reports", zap.Error(err))
	cached, cacheErr := h.reports.List()
	if cacheErr != nil {
		writeConnectorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": cached, "cached": true})
}

// GetReport returns one report, falling back to the local cache.
func (h *Handler) GetReport(c *gin.Context) {
	id := c.Param("id")

	report, err := h.client.GetReport(c.Request.Context(), id)
	if err == nil {
		h.cacheReports([]domain.Report{*report})
		c.JSON(http.StatusOK, report)
		return
	}

	if h.reports != nil {
		if cached, cacheErr := h.reports.Get(id); cacheErr == nil && cached != nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}
	writeConnectorError(c, err)
}

func (h *Handler) cacheReports(reports []domain.Report) {
	if h.reports == nil {
		return
	}
	for _, r := range reports {
		if err := h.reports.Save(r); err != nil {
			h.logger.Warn("failed to cache report", zap.String("report_id", r.ID), zap.Error(err))
		}
	}
}

// writeConnectorError maps a connector failure onto the gateway response.
func writeConnectorError(c *gin.Context, err error) {
	if apiErr, ok := domain.AsAPIError(err); ok {
		status := http.StatusBadGateway
		if apiErr.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": apiErr.Message, "upstreamStatus": apiErr.Status})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
