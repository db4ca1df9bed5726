package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/transport/rest"
	customMW "github.com/stockerhq/stocker/internal/transport/rest/middleware"
)

type HTTPServer struct {
	cfg    *config.Config
	server *http.Server
}

func New(cfg *config.Config, ctrl *rest.Controller, sessionStore customMW.SessionStore) *HTTPServer {
	if !cfg.HTTP.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), customMW.Logger())

	setupRoutes(router, ctrl, sessionStore)

	return &HTTPServer{
		cfg: cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
			Handler:      router,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

func setupRoutes(router *gin.Engine, ctrl *rest.Controller, sessionStore customMW.SessionStore) {
	router.POST("/signup", ctrl.Signup)
	router.POST("/login", ctrl.Login)

	authorized := router.Group("/")
	authorized.Use(customMW.Auth(sessionStore))
	{
		authorized.POST("/logout", ctrl.Logout)
		authorized.GET("/stocks", ctrl.ListStocks)
	}

	trader := authorized.Group("/")
	trader.Use(customMW.RequireRole(model.RoleTrader))
	{
		trader.POST("/trades/buy", ctrl.Buy)
		trader.POST("/trades/sell", ctrl.Sell)
		trader.GET("/portfolio", ctrl.Portfolio)
		trader.GET("/transactions", ctrl.ListTransactions)
	}

	admin := authorized.Group("/admin")
	admin.Use(customMW.RequireRole(model.RoleAdmin))
	{
		admin.GET("/traders", ctrl.ListTraderValuations)
		admin.DELETE("/traders/:id", ctrl.DeleteTrader)
		admin.GET("/transactions", ctrl.ListAllTransactions)
		admin.GET("/portfolios", ctrl.PortfolioOverview)
		admin.GET("/report", ctrl.DownloadReport)
		admin.POST("/stocks", ctrl.CreateStock)
		admin.PUT("/stocks/:id/price", ctrl.UpdateStockPrice)
	}
}

func (s *HTTPServer) Start() {
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("error while server.ListenAndServe", slog.String("err", err.Error()))
			panic(err)
		}
	}()
	slog.Info("http server started!", slog.String("addr", s.server.Addr))
}

func (s *HTTPServer) Stop() {
	slog.Info("start stopping http server")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		slog.Error("error while server.Shutdown", slog.String("err", err.Error()))
	}

	slog.Info("http server stopped")
}
