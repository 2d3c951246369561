// Package server assembles the HTTP routes of the API.
package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"pocketledger/internal/handlers"
	"pocketledger/internal/middleware"
	"pocketledger/internal/scanner"
	"pocketledger/internal/services"
)

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	Auth        *middleware.JWTAuth
	Users       services.UserServicer
	Categories  services.CategoryServicer
	Expenses    services.ExpenseServicer
	Incomes     services.IncomeServicer
	Scanner     scanner.BillScanner
	CORSOrigins []string
	MaxUpload   int64
}

// NewRouter builds the gin engine with every API route mounted under
// /api/v1.
func NewRouter(d Deps) *gin.Engine {
	authHandler := handlers.NewAuthHandler(d.Users, d.Auth)
	categoryHandler := handlers.NewCategoryHandler(d.Categories)
	expenseHandler := handlers.NewExpenseHandler(d.Expenses)
	incomeHandler := handlers.NewIncomeHandler(d.Incomes)

	billScanner := d.Scanner
	if billScanner == nil {
		billScanner = scanner.Disabled{}
	}
	scanHandler := handlers.NewScanHandler(billScanner, d.MaxUpload)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(corsConfig(d.CORSOrigins)))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/signin", authHandler.Signin)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(d.Auth))

	protected.GET("/user/profile", authHandler.GetProfile)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.ListCategories)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	categories.POST("/:id/expenses", expenseHandler.AddExpense)
	categories.GET("/:id/expenses", expenseHandler.ListExpenses)

	expenses := protected.Group("/expenses")
	expenses.POST("/smart", expenseHandler.SmartAddExpense)
	expenses.POST("/scan", scanHandler.ScanBill)
	expenses.PUT("/:id", expenseHandler.EditExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	incomes := protected.Group("/incomes")
	incomes.GET("", incomeHandler.ListRecentIncomes)
	incomes.GET("/history", incomeHandler.ListIncomeHistory)
	incomes.POST("", incomeHandler.AddIncome)
	incomes.PUT("/:id", incomeHandler.EditIncome)
	incomes.DELETE("/:id", incomeHandler.DeleteIncome)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
