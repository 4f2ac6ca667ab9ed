package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetJSONContentType)
	e.Use(SetNoCacheHeaders)

	if len(cfg.CORSOrigins) > 0 {
		// browsers reject credentials combined with a wildcard origin
		wildcard := false
		for _, origin := range cfg.CORSOrigins {
			if origin == "*" {
				wildcard = true
				break
			}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowCredentials: !wildcard,
		}))
	}

	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	api := e.Group("/api")
	api.GET("/", h.Root)
	api.GET("", h.Root)
	api.GET("/health", h.Health)

	api.GET("/treasury/address", h.TreasuryAddress)
	api.GET("/balance/:address", h.Balance)

	api.GET("/token-list", h.TokenList)
	api.GET("/token-info/:mint", h.TokenInfo)
	api.GET("/token-balance/:wallet/:mint", h.TokenBalance)
	api.GET("/wallet-tokens/:wallet", h.WalletTokens)

	api.POST("/swap/quote", h.SwapQuote)
	api.POST("/swap/execute", h.SwapExecute)

	// Transfer endpoints move funds; keep a modest rate limit on them.
	transfers := api.Group("/transfer")
	transfers.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(2),
		Burst:     5,
		ExpiresIn: 2 * time.Minute,
	})))
	transfers.POST("/sol", h.TransferLegacy)
	transfers.POST("/sol/prepare", h.TransferPrepare)
	transfers.POST("/sol/execute", h.TransferExecute)

	api.GET("/transactions/:address", h.Transactions)
	api.GET("/prices", h.Prices)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound, ErrorCode: CodeNotFound})
	})
}
