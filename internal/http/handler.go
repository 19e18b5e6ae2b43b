package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/plantrent-contracts/internal/http/middleware"
	"github.com/nurpe/plantrent-contracts/internal/model"
	"github.com/nurpe/plantrent-contracts/internal/service"
)

type ContractService interface {
	CreateContract(ctx context.Context, cmd service.CreateContractCommand) (*model.Contract, error)
	UpdateContract(ctx context.Context, cmd service.UpdateContractCommand) (*model.Contract, error)
	ActivateContract(ctx context.Context, cmd service.ActivateContractCommand) (*model.Contract, error)
	CancelContract(ctx context.Context, cmd service.CancelContractCommand) (*model.Contract, error)
	RenewContract(ctx context.Context, cmd service.RenewContractCommand) (*model.Contract, error)
	GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	ContractPlants(ctx context.Context, id uuid.UUID) ([]model.CustomerPlant, error)
	CustomerContracts(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error)
	ExpiringContracts(ctx context.Context, withinDays int) ([]model.Contract, error)
	ContractStats(ctx context.Context) (model.ContractStats, error)
	ExportExpiring(ctx context.Context, withinDays int) (*service.FileResult, error)
	ContractDocument(ctx context.Context, id uuid.UUID) (*service.FileResult, error)
}

type InventoryService interface {
	Stock(ctx context.Context, plantTypeID uuid.UUID) (*model.Inventory, error)
	Restock(ctx context.Context, lines []model.StockAdjustment) error
}

type Handler struct {
	contracts ContractService
	inventory InventoryService
	log       zerolog.Logger
}

func NewHandler(contracts ContractService, inventory InventoryService, log zerolog.Logger) *Handler {
	return &Handler{contracts: contracts, inventory: inventory, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/contracts", h.createContract)
	protected.GET("/contracts/expiring", h.expiringContracts)
	protected.GET("/contracts/expiring/export", h.exportExpiring)
	protected.GET("/contracts/stats", h.contractStats)
	protected.GET("/contracts/:id", h.getContract)
	protected.PATCH("/contracts/:id", h.updateContract)
	protected.POST("/contracts/:id/activate", h.activateContract)
	protected.POST("/contracts/:id/cancel", h.cancelContract)
	protected.POST("/contracts/:id/renew", h.renewContract)
	protected.GET("/contracts/:id/plants", h.contractPlants)
	protected.GET("/contracts/:id/document", h.contractDocument)
	protected.GET("/customers/:id/contracts", h.customerContracts)

	protected.GET("/inventory/:plantTypeId", h.stock)
	protected.POST("/inventory/restock", h.restock)
}

type itemRequest struct {
	PlantTypeID     string           `json:"plant_type_id" binding:"required"`
	Quantity        int              `json:"quantity" binding:"required"`
	UnitPrice       *model.Money     `json:"unit_price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
}

type createContractRequest struct {
	CustomerID    string        `json:"customer_id" binding:"required"`
	StartDate     string        `json:"start_date" binding:"required"`
	EndDate       string        `json:"end_date" binding:"required"`
	Items         []itemRequest `json:"items" binding:"required,dive"`
	DepositAmount *model.Money  `json:"deposit_amount"`
	PaymentTerms  *string       `json:"payment_terms"`
	Notes         *string       `json:"notes"`
}

type updateContractRequest struct {
	StartDate     *string        `json:"start_date"`
	EndDate       *string        `json:"end_date"`
	Items         *[]itemRequest `json:"items"`
	DepositAmount *model.Money   `json:"deposit_amount"`
	PaymentTerms  *string        `json:"payment_terms"`
	Notes         *string        `json:"notes"`
}

type cancelContractRequest struct {
	Reason string `json:"reason"`
}

type renewContractRequest struct {
	NewStartDate string         `json:"new_start_date" binding:"required"`
	NewEndDate   string         `json:"new_end_date" binding:"required"`
	Items        *[]itemRequest `json:"items"`
}

type restockRequest struct {
	Lines []struct {
		PlantTypeID string `json:"plant_type_id" binding:"required"`
		Quantity    int    `json:"quantity" binding:"required"`
	} `json:"lines" binding:"required,dive"`
}

func (h *Handler) createContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customerID, err := uuid.Parse(strings.TrimSpace(req.CustomerID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer_id"})
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
		return
	}
	items, err := parseItems(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.CreateContract(c.Request.Context(), service.CreateContractCommand{
		CustomerID:    customerID,
		StartDate:     start,
		EndDate:       end,
		Items:         items,
		DepositAmount: req.DepositAmount,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (h *Handler) getContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.contracts.GetContract(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) updateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cmd := service.UpdateContractCommand{
		ID:            id,
		DepositAmount: req.DepositAmount,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
		Principal:     principal,
	}
	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		cmd.StartDate = &start
	}
	if req.EndDate != nil {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date"})
			return
		}
		cmd.EndDate = &end
	}
	if req.Items != nil {
		items, err := parseItems(*req.Items)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		cmd.Items = items
		cmd.ReplaceItems = true
	}

	contract, err := h.contracts.UpdateContract(c.Request.Context(), cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) activateContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	contract, err := h.contracts.ActivateContract(c.Request.Context(), service.ActivateContractCommand{
		ID:        id,
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) cancelContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// An empty body, chunked or not, means no reason was given.
	var req cancelContractRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contract, err := h.contracts.CancelContract(c.Request.Context(), service.CancelContractCommand{
		ID:        id,
		Reason:    strings.TrimSpace(req.Reason),
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (h *Handler) renewContract(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req renewContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := parseDate(req.NewStartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid new_start_date"})
		return
	}
	end, err := parseDate(req.NewEndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid new_end_date"})
		return
	}

	cmd := service.RenewContractCommand{
		ID:           id,
		NewStartDate: start,
		NewEndDate:   end,
		Principal:    principal,
	}
	if req.Items != nil {
		if cmd.Items, err = parseItems(*req.Items); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	successor, err := h.contracts.RenewContract(c.Request.Context(), cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successor)
}

func (h *Handler) contractPlants(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	plants, err := h.contracts.ContractPlants(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plants})
}

func (h *Handler) customerContracts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contracts, err := h.contracts.CustomerContracts(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contracts})
}

func (h *Handler) expiringContracts(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}
	contracts, err := h.contracts.ExpiringContracts(c.Request.Context(), days)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": contracts})
}

func (h *Handler) exportExpiring(c *gin.Context) {
	days, ok := queryDays(c)
	if !ok {
		return
	}
	result, err := h.contracts.ExportExpiring(c.Request.Context(), days)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", result.Content)
}

func (h *Handler) contractStats(c *gin.Context) {
	stats, err := h.contracts.ContractStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) contractDocument(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.contracts.ContractDocument(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, "application/pdf", result.Content)
}

func (h *Handler) stock(c *gin.Context) {
	id, ok := pathID(c, "plantTypeId")
	if !ok {
		return
	}
	inv, err := h.inventory.Stock(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *Handler) restock(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	if !principal.CanManageInventory() {
		c.JSON(http.StatusForbidden, gin.H{"error": "restocking requires a manager or admin role"})
		return
	}

	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lines := make([]model.StockAdjustment, 0, len(req.Lines))
	for _, line := range req.Lines {
		plantTypeID, err := uuid.Parse(strings.TrimSpace(line.PlantTypeID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plant_type_id"})
			return
		}
		lines = append(lines, model.StockAdjustment{PlantTypeID: plantTypeID, Quantity: line.Quantity})
	}

	if err := h.inventory.Restock(c.Request.Context(), lines); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch service.Classify(err) {
	case service.ClassValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case service.ClassNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case service.ClassStateConflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case service.ClassResourceConflict:
		body := gin.H{"error": err.Error()}
		var stockErr *service.InsufficientStockError
		if errors.As(err, &stockErr) {
			body["shortages"] = stockErr.Shortages
		}
		c.JSON(http.StatusConflict, body)
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func queryDays(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("days"))
	if raw == "" {
		return 0, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
		return 0, false
	}
	return days, true
}

func parseItems(reqs []itemRequest) ([]service.ItemInput, error) {
	items := make([]service.ItemInput, 0, len(reqs))
	for _, req := range reqs {
		plantTypeID, err := uuid.Parse(strings.TrimSpace(req.PlantTypeID))
		if err != nil {
			return nil, errors.New("invalid plant_type_id")
		}
		item := service.ItemInput{
			PlantTypeID: plantTypeID,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
		}
		if req.DiscountPercent != nil {
			item.DiscountPercent = *req.DiscountPercent
		}
		items = append(items, item)
	}
	return items, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}
