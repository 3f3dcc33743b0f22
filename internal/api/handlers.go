package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"comparables/server/internal/comparables"
	"comparables/server/internal/database"
	"comparables/server/internal/models"
	"comparables/server/internal/pipeline"
	"comparables/server/internal/queue"
	"comparables/server/internal/selection"
)

type Handler struct {
	db      *database.Database
	manager *comparables.Manager
	queue   *queue.TransactionQueue
	logger  *logrus.Logger
}

type OpenRequest struct {
	AreaSqm    float64  `json:"area_sqm"`
	StreetName string   `json:"street_name"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

type SelectRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
}

type StrategyRequest struct {
	Strategy string `json:"strategy" binding:"required"`
}

type IngestRequest struct {
	SubjectPropertyID string                     `json:"subject_property_id" binding:"required"`
	Transactions      []models.NearbyTransaction `json:"transactions" binding:"required"`
}

func NewHandler(db *database.Database, manager *comparables.Manager, queue *queue.TransactionQueue, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{
		db:      db,
		manager: manager,
		queue:   queue,
		logger:  logger,
	}
}

// userID resolves the caller's identity. Authentication itself happens
// upstream; the engine only needs a stable key per user.
func (h *Handler) userID(c *gin.Context) (string, bool) {
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing X-User-ID header"})
		return "", false
	}
	return userID, true
}

// IngestTransactions queues a batch of raw sale records for a subject
// property. The batch is processed asynchronously.
func (h *Handler) IngestTransactions(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse ingest request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	batch := make([]*models.NearbyTransaction, 0, len(req.Transactions))
	for i := range req.Transactions {
		tx := req.Transactions[i]
		tx.SubjectPropertyID = req.SubjectPropertyID
		batch = append(batch, &tx)
	}

	if err := h.queue.Push(batch); err != nil {
		h.logger.WithError(err).Error("Failed to queue transaction batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingestion queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":     "accepted",
		"batch_size": len(batch),
	})
}

// OpenComparables opens the engine context for a user and subject property,
// loading any persisted selection before user edits are allowed to save.
func (h *Handler) OpenComparables(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	subjectID := c.Param("subject_id")

	var req OpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse open request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	raw, err := h.db.GetNearbyTransactions(subjectID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load nearby transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load nearby transactions"})
		return
	}

	subject := models.SubjectContext{
		PropertyID: subjectID,
		AreaSqm:    req.AreaSqm,
		StreetName: req.StreetName,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	}
	engine := h.manager.Open(c.Request.Context(), userID, subject, raw)

	c.JSON(http.StatusOK, gin.H{
		"transaction_count": len(engine.View(models.FilterCriteria{}, pipeline.SortDateDesc)),
		"selected_ids":      engine.SelectedIDs(),
		"valuation":         engine.Valuation(),
	})
}

// GetComparables returns the filtered, sorted view over the normalized set.
func (h *Handler) GetComparables(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	criteria, err := parseCriteria(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view := engine.View(criteria, parseSortKey(c.DefaultQuery("sort", "date_desc")))
	c.JSON(http.StatusOK, gin.H{
		"transactions": view,
		"count":        len(view),
		"selected_ids": engine.SelectedIDs(),
	})
}

// SelectComparable marks a property as a comparable.
func (h *Handler) SelectComparable(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	if err := engine.Select(req.PropertyID); err != nil {
		if err == selection.ErrUnknownProperty {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Property is not in the current transaction set"})
			return
		}
		h.logger.WithError(err).Error("Failed to select comparable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to select comparable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"selected_ids": engine.SelectedIDs(),
		"valuation":    engine.Valuation(),
	})
}

// DeselectComparable removes a property from the comparables.
func (h *Handler) DeselectComparable(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	engine.Deselect(req.PropertyID)
	c.JSON(http.StatusOK, gin.H{
		"selected_ids": engine.SelectedIDs(),
		"valuation":    engine.Valuation(),
	})
}

// ClearComparables empties the selection.
func (h *Handler) ClearComparables(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	engine.Clear()
	c.JSON(http.StatusOK, gin.H{
		"selected_ids": engine.SelectedIDs(),
		"valuation":    engine.Valuation(),
	})
}

// SetStrategy switches the valuation strategy.
func (h *Handler) SetStrategy(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	var req StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	strategy := models.ValuationStrategy(req.Strategy)
	if !strategy.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown valuation strategy"})
		return
	}

	engine.SetStrategy(strategy)
	c.JSON(http.StatusOK, gin.H{"valuation": engine.Valuation()})
}

// GetValuation computes the estimate for the current selection.
func (h *Handler) GetValuation(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, engine.Valuation())
}

// RefreshComparables re-reads the nearby transactions for an open context,
// pruning selected ids whose properties disappeared from the input.
func (h *Handler) RefreshComparables(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}

	raw, err := h.db.GetNearbyTransactions(engine.Subject.PropertyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load nearby transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load nearby transactions"})
		return
	}

	engine.SetTransactions(raw)
	c.JSON(http.StatusOK, gin.H{
		"transaction_count": len(engine.View(models.FilterCriteria{}, pipeline.SortDateDesc)),
		"selected_ids":      engine.SelectedIDs(),
		"valuation":         engine.Valuation(),
	})
}

// CloseComparables tears down the context, flushing any unsaved selection.
func (h *Handler) CloseComparables(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	subjectID := c.Param("subject_id")

	if !h.manager.Close(c.Request.Context(), userID, subjectID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No open comparables context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func (h *Handler) engine(c *gin.Context) (*comparables.Context, bool) {
	userID, ok := h.userID(c)
	if !ok {
		return nil, false
	}
	subjectID := c.Param("subject_id")

	engine, ok := h.manager.Get(userID, subjectID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No open comparables context"})
		return nil, false
	}
	return engine, true
}

// parseCriteria builds the filter set from query parameters. Numeric filters
// accept an "N+" suffix for an open lower bound; distance accepts "any",
// "same_street", or a maximum in metres.
func parseCriteria(c *gin.Context) (models.FilterCriteria, error) {
	var criteria models.FilterCriteria

	if v := c.Query("bedrooms"); v != "" && v != "any" {
		n, open, err := parseOpenBound(v)
		if err != nil {
			return criteria, err
		}
		criteria.Bedrooms = &n
		criteria.BedroomsOpen = open
	}
	if v := c.Query("bathrooms"); v != "" && v != "any" {
		n, open, err := parseOpenBound(v)
		if err != nil {
			return criteria, err
		}
		criteria.Bathrooms = &n
		criteria.BathroomsOpen = open
	}
	if v := c.Query("window_days"); v != "" && v != "any" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return criteria, errInvalidFilter("window_days", v)
		}
		criteria.WindowDays = &n
	}
	if v := c.Query("property_type"); v != "" && v != "any" {
		criteria.PropertyType = v
	}
	switch v := c.Query("distance"); v {
	case "", "any":
		criteria.Distance.Mode = models.DistanceAny
	case "same_street":
		criteria.Distance.Mode = models.DistanceSameStreet
	default:
		metres, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return criteria, errInvalidFilter("distance", v)
		}
		criteria.Distance = models.DistanceFilter{Mode: models.DistanceMaxMetres, MaxMetres: metres}
	}

	return criteria, nil
}

func parseOpenBound(v string) (int, bool, error) {
	open := strings.HasSuffix(v, "+")
	n, err := strconv.Atoi(strings.TrimSuffix(v, "+"))
	if err != nil {
		return 0, false, errInvalidFilter("filter", v)
	}
	return n, open, nil
}

func parseSortKey(v string) pipeline.SortKey {
	switch pipeline.SortKey(v) {
	case pipeline.SortPriceDesc, pipeline.SortPriceAsc, pipeline.SortDateDesc, pipeline.SortDateAsc, pipeline.SortDistanceAsc:
		return pipeline.SortKey(v)
	default:
		return pipeline.SortDateDesc
	}
}

type filterError struct {
	field string
	value string
}

func errInvalidFilter(field, value string) error {
	return &filterError{field: field, value: value}
}

func (e *filterError) Error() string {
	return "invalid " + e.field + " filter: " + e.value
}
