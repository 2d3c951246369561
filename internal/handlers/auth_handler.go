package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/services"
)

// TokenIssuer issues access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// AuthHandler handles signup, signin and profile requests.
type AuthHandler struct {
	userService services.UserServicer
	tokens      TokenIssuer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService services.UserServicer, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{userService: userService, tokens: tokens}
}

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	UserName      string `json:"userName" binding:"required,max=64"`
	Password      string `json:"password" binding:"required,max=128"`
	CashBalance   int64  `json:"cashBalance" binding:"min=0"`
	OnlineBalance int64  `json:"onlineBalance" binding:"min=0"`
	MonthlyBudget int64  `json:"monthlyBudget" binding:"min=0"`
}

// SigninRequest represents the signin request payload
type SigninRequest struct {
	UserName string `json:"userName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse represents the user data in the response
type UserResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	UserName      string `json:"userName"`
	CashBalance   int64  `json:"cashBalance"`
	OnlineBalance int64  `json:"onlineBalance"`
	MonthlyBudget int64  `json:"monthlyBudget"`
}

// TokenResponse carries an access token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ProfileResponse is the user's current balances.
type ProfileResponse struct {
	CashBalance   int64 `json:"cashBalance"`
	OnlineBalance int64 `json:"onlineBalance"`
	MonthlyBudget int64 `json:"monthlyBudget"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		UserName:      u.UserName,
		CashBalance:   u.CashBalance,
		OnlineBalance: u.OnlineBalance,
		MonthlyBudget: u.MonthlyBudget,
	}
}

// Signup handles user registration
// @Summary     Sign up
// @Description Register a user with opening balances. The monthly budget may not exceed cash plus online balance.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body SignupRequest true "User details"
// @Success     201 {object} UserResponse "User created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Username taken"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.Signup(c.Request.Context(), services.SignupInput{
		Name:          req.Name,
		UserName:      req.UserName,
		Password:      req.Password,
		CashBalance:   req.CashBalance,
		OnlineBalance: req.OnlineBalance,
		MonthlyBudget: req.MonthlyBudget,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

// Signin handles user login
// @Summary     Sign in
// @Description Exchange username and password for an access token
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body SigninRequest true "Credentials"
// @Success     200 {object} TokenResponse "Access token"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Wrong credentials"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /auth/signin [post]
func (h *AuthHandler) Signin(c *gin.Context) {
	var req SigninRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.Authenticate(c.Request.Context(), req.UserName, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// GetProfile returns the caller's balances
// @Summary     Get profile
// @Description Current cash balance, online balance and monthly budget
// @Tags        user
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ProfileResponse "Balances"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /user/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		CashBalance:   user.CashBalance,
		OnlineBalance: user.OnlineBalance,
		MonthlyBudget: user.MonthlyBudget,
	})
}
