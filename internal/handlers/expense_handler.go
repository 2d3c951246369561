package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pocketledger/internal/models"
	"pocketledger/internal/services"
)

// ExpenseHandler handles expense-related requests.
type ExpenseHandler struct {
	expenseService services.ExpenseServicer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService services.ExpenseServicer) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// AddExpenseRequest represents the request payload for adding an expense
type AddExpenseRequest struct {
	Amount      int64              `json:"amount" binding:"required,gt=0"`
	PaymentType models.PaymentType `json:"paymentType" binding:"required,payment_type"`
}

// SmartAddExpenseRequest represents the request payload for adding an
// expense by category name
type SmartAddExpenseRequest struct {
	Amount       int64              `json:"amount" binding:"required,gt=0"`
	CategoryName string             `json:"categoryName" binding:"required,max=100"`
	PaymentType  models.PaymentType `json:"paymentType" binding:"required,payment_type"`
}

// EditExpenseRequest represents the request payload for editing an expense
type EditExpenseRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// AddExpense adds an expense to a category
// @Summary     Add an expense
// @Description Record a spend against a category. Debits the payment type's balance and the monthly budget.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Param       request body AddExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/expenses [post]
func (h *ExpenseHandler) AddExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	expense, err := h.expenseService.AddExpense(c.Request.Context(), userID, categoryID, req.Amount, req.PaymentType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// SmartAddExpense adds an expense by category name
// @Summary     Smart add an expense
// @Description Record a spend against the category with the given name, creating it if needed. Balance and budget must cover the amount.
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SmartAddExpenseRequest true "Expense details"
// @Success     201 {object} models.Expense "Expense created"
// @Failure     400 {object} ErrorResponse "Invalid input, insufficient balance or budget exceeded"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /expenses/smart [post]
func (h *ExpenseHandler) SmartAddExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SmartAddExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	expense, err := h.expenseService.SmartAddExpense(c.Request.Context(), userID, req.CategoryName, req.Amount, req.PaymentType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

// ListExpenses lists a category's expenses
// @Summary     List expenses
// @Description Expenses of a category, newest first
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Category ID"
// @Success     200 {array} models.Expense "Expenses"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/expenses [get]
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	categoryID, err := parsePathID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenses, err := h.expenseService.ListExpenses(c.Request.Context(), userID, categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

// EditExpense changes an expense's amount
// @Summary     Edit an expense
// @Description Change the amount; returns the category's expenses, newest first
// @Tags        expenses
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Param       request body EditExpenseRequest true "New amount"
// @Success     200 {array} models.Expense "Category expenses"
// @Failure     400 {object} ErrorResponse "Invalid input, insufficient balance or budget exceeded"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [put]
func (h *ExpenseHandler) EditExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req EditExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	expenses, err := h.expenseService.EditExpense(c.Request.Context(), userID, expenseID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}

// DeleteExpense deletes an expense
// @Summary     Delete an expense
// @Description Delete an expense and refund it; returns the category's expenses, newest first
// @Tags        expenses
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Expense ID"
// @Success     200 {array} models.Expense "Category expenses"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Expense not found"
// @Router      /expenses/{id} [delete]
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenseID, err := parsePathID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	expenses, err := h.expenseService.DeleteExpense(c.Request.Context(), userID, expenseID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}
