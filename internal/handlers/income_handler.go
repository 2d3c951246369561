package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pocketledger/internal/models"
	"pocketledger/internal/pagination"
	"pocketledger/internal/services"
)

// IncomeHandler handles income-related requests.
type IncomeHandler struct {
	incomeService services.IncomeServicer
}

// NewIncomeHandler creates a new IncomeHandler.
func NewIncomeHandler(incomeService services.IncomeServicer) *IncomeHandler {
	return &IncomeHandler{incomeService: incomeService}
}

// AddIncomeRequest represents the request payload for adding an income
type AddIncomeRequest struct {
	Amount       int64              `json:"amount" binding:"required,gt=0"`
	PaymentType  models.PaymentType `json:"paymentType" binding:"required,payment_type"`
	ReceivedFrom string             `json:"receivedFrom" binding:"max=255"`
}

// EditIncomeRequest represents the request payload for editing an income.
// Omitted optional fields keep their value.
type EditIncomeRequest struct {
	Amount       int64               `json:"amount" binding:"required,gt=0"`
	PaymentType  *models.PaymentType `json:"paymentType" binding:"omitempty,payment_type"`
	ReceivedFrom *string             `json:"receivedFrom" binding:"omitempty,max=255"`
}

// ListRecentIncomes lists incomes still inside the edit window
// @Summary     List recent incomes
// @Description Incomes created inside the edit window, newest first
// @Tags        incomes
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Income "Recent incomes"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /incomes [get]
func (h *IncomeHandler) ListRecentIncomes(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	incomes, err := h.incomeService.ListRecentIncomes(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"incomes": incomes})
}

// ListIncomeHistory lists all incomes page by page
// @Summary     Income history
// @Description All incomes, newest first, paginated
// @Tags        incomes
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Income] "Incomes"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /incomes/history [get]
func (h *IncomeHandler) ListIncomeHistory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.incomeService.ListIncomeHistory(c.Request.Context(), userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AddIncome records an income
// @Summary     Add an income
// @Description Record an inflow and credit the payment type's balance; returns recent incomes
// @Tags        incomes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AddIncomeRequest true "Income details"
// @Success     201 {array} models.Income "Recent incomes"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /incomes [post]
func (h *IncomeHandler) AddIncome(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	incomes, err := h.incomeService.AddIncome(c.Request.Context(), userID, req.Amount, req.PaymentType, req.ReceivedFrom)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"incomes": incomes})
}

// EditIncome edits an income inside its window
// @Summary     Edit an income
// @Description Rewrite an income created inside the edit window; the payment type may change. Returns recent incomes.
// @Tags        incomes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Income ID"
// @Param       request body EditIncomeRequest true "New values"
// @Success     200 {array} models.Income "Recent incomes"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Outside edit window"
// @Failure     404 {object} ErrorResponse "Income not found"
// @Router      /incomes/{id} [put]
func (h *IncomeHandler) EditIncome(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	incomeID, err := parsePathID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req EditIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	incomes, err := h.incomeService.EditIncome(c.Request.Context(), userID, incomeID, services.IncomeUpdate{
		Amount:       req.Amount,
		PaymentType:  req.PaymentType,
		ReceivedFrom: req.ReceivedFrom,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"incomes": incomes})
}

// DeleteIncome deletes an income inside its window
// @Summary     Delete an income
// @Description Delete an income created inside the edit window and debit its balance. Returns recent incomes.
// @Tags        incomes
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Income ID"
// @Success     200 {array} models.Income "Recent incomes"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Outside edit window"
// @Failure     404 {object} ErrorResponse "Income not found"
// @Router      /incomes/{id} [delete]
func (h *IncomeHandler) DeleteIncome(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	incomeID, err := parsePathID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	incomes, err := h.incomeService.DeleteIncome(c.Request.Context(), userID, incomeID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"incomes": incomes})
}
