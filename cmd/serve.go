package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-transactions/app/bi"
	"github.com/vibast-solutions/ms-go-transactions/app/biller"
	"github.com/vibast-solutions/ms-go-transactions/app/cache"
	"github.com/vibast-solutions/ms-go-transactions/app/controller"
	"github.com/vibast-solutions/ms-go-transactions/app/repository"
	"github.com/vibast-solutions/ms-go-transactions/app/service"
	"github.com/vibast-solutions/ms-go-transactions/app/types"
	"github.com/vibast-solutions/ms-go-transactions/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for the transactions service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, transactionService, cleanup := mustCreateTransactionService()
	defer cleanup()

	healthChecker := service.NewHealthChecker(nil, billerHealthCommands())
	transactionController := controller.NewTransactionController(transactionService, healthChecker)

	e := setupHTTPServer(transactionController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

func setupHTTPServer(transactionController *controller.TransactionController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(requireRequestID())

	e.GET("/health", transactionController.Health)

	transactions := e.Group("/transactions")
	transactions.POST("/sale", transactionController.SaleNewCreditCard)
	transactions.POST("/sale/existing-card", transactionController.SaleExistingCreditCard)
	transactions.POST("/sale/other-payment", transactionController.SaleOtherPayment)
	transactions.GET("/:id", transactionController.GetTransaction)
	transactions.GET("/:id/qr", transactionController.RetrieveQrCode)
	transactions.POST("/:id/abort", transactionController.AbortTransaction)
	transactions.POST("/:id/complete-threed", transactionController.CompleteThreeD)
	transactions.POST("/:id/complete-threed/simplified", transactionController.SimplifiedCompleteThreeD)
	transactions.POST("/:id/lookup", transactionController.Lookup)
	transactions.POST("/:id/rebill/cancel", transactionController.CancelRebill)
	transactions.POST("/:id/rebill/update", transactionController.UpdateRebill)

	postbacks := e.Group("/postbacks")
	postbacks.POST("/:biller/:id", transactionController.AddBillerInteraction)
	postbacks.POST("/:biller/:id/rebill", transactionController.RebillPostback)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

// billerHealthCommands maps each registered biller to the breaker commands the
// health endpoint reports on.
func billerHealthCommands() map[string][]string {
	return map[string][]string{
		biller.NameRocketgate: {
			"rocketgate.charge",
			"rocketgate.rebill",
			"rocketgate.threed",
		},
	}
}

func mustCreateTransactionService() (*config.Config, *service.TransactionService, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	cvvCache, err := cache.NewCvvCache(cfg.Redis.URL, cfg.Redis.CvvTTL)
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to connect to redis")
	}

	transactionRepo := repository.NewTransactionRepository(db)
	extraDataRepo := repository.NewDeclinedBillerResponseExtraDataRepository(db)

	rocketgateBiller := biller.NewRocketgateBiller(biller.RocketgateConfig{
		GatewayURL:       cfg.Rocketgate.GatewayURL,
		MerchantID:       cfg.Rocketgate.MerchantID,
		MerchantPassword: cfg.Rocketgate.MerchantPassword,
		HTTPTimeout:      cfg.Rocketgate.HTTPTimeout,
	})
	billerRegistry := biller.NewRegistry(rocketgateBiller)

	transactionService := service.NewTransactionService(
		transactionRepo,
		extraDataRepo,
		billerRegistry,
		cvvCache,
		bi.NewLogger(),
		cfg.Transactions,
	)

	cleanup := func() {
		if err := cvvCache.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis client")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, transactionService, cleanup
}
