package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"numislive/internal/api/handlers"
	"numislive/internal/api/middleware"
	"numislive/internal/config"
	"numislive/internal/domain"
	"numislive/internal/metrics"
	"numislive/pkg/logger"
)

// Server is the REST surface. Browsing is public; every mutation requires a
// verified token, and the payments ledger is admin-only.
type Server struct {
	echo *echo.Echo
	cfg  config.ServerConfig
	log  logger.Logger
}

func NewServer(
	cfg config.ServerConfig,
	jwtSecret string,
	listingHandler *handlers.ListingHandler,
	paymentHandler *handlers.PaymentHandler,
	log logger.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.RequestID())
	e.Use(echomw.LoggerWithConfig(echomw.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","host":"${host}","method":"${method}","uri":"${uri}","user_agent":"${user_agent}","status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}","bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n",
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestedWith,
		},
		MaxAge: 86400,
	}))

	auth := middleware.JWTAuth(jwtSecret)

	api := e.Group("/api/v1")

	// Public browsing
	api.GET("/listings", listingHandler.ListListings)
	api.GET("/listings/:id", listingHandler.GetListing)
	api.GET("/listings/:id/bids", listingHandler.ListBids)

	// Authenticated mutations
	api.POST("/listings", listingHandler.CreateListing, auth)
	api.DELETE("/listings/:id", listingHandler.DeleteListing, auth)
	api.POST("/listings/:id/close", listingHandler.CloseListing, auth)
	api.POST("/listings/:id/bids", listingHandler.PlaceBid, auth)
	api.DELETE("/bids/:bidID", listingHandler.DeleteBid, auth)
	api.POST("/listings/:id/comments", listingHandler.AddComment, auth)

	// Payment provider callback and admin ledger
	api.POST("/payments/confirm", paymentHandler.ConfirmPayment)
	api.GET("/admin/payments", paymentHandler.ListPayments, auth, middleware.RequireRoles(domain.RoleAdmin))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "numislive",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
		})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return &Server{echo: e, cfg: cfg, log: log}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.log.Info("Starting API server", "address", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
