package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmbizsuite/console_backend/config"
	"github.com/mmbizsuite/console_backend/middlewares"
	"github.com/mmbizsuite/console_backend/models"
	"github.com/mmbizsuite/console_backend/odoosync"
	"github.com/mmbizsuite/console_backend/utils"
	"github.com/mmbizsuite/console_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	port := os.Getenv("RECON_SERVICE_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))
	r.Use(func(c *gin.Context) {
		if c.GetHeader("token") == "" {
			auth := strings.TrimSpace(c.GetHeader("Authorization"))
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				token := strings.TrimSpace(auth[7:])
				if token != "" {
					c.Request.Header.Set("token", token)
				}
			}
		}
		c.Next()
	})
	r.Use(middlewares.SessionMiddleware())
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	// Authenticated API surface.
	api := r.Group("/api", middlewares.BusinessMiddleware())

	// Batch reconciliation entry points.
	api.POST("/recon/bank-fees", workflow.RecalcFeesHandler(models.FeeKindBank))
	api.POST("/recon/gateway-fees", workflow.RecalcFeesHandler(models.FeeKindGateway))
	api.POST("/recon/reset-sync-flags", workflow.ResetSyncFlagsHandler)
	api.POST("/recon/treasury", workflow.TreasuryRecomputeHandler)
	api.GET("/recon/fee-pairs", workflow.ListFeePairsHandler)
	api.POST("/recon/fee-pairs", workflow.CreateFeePairHandler)
	api.POST("/recon/fee-pairs/:id/toggle", workflow.ToggleFeePairHandler)
	api.GET("/recon/jobs", workflow.ActiveJobsHandler)
	api.GET("/recon/jobs/:id", workflow.JobDetailHandler)
	api.GET("/recon/jobs/:id/errors", workflow.JobErrorsHandler)

	// Odoo integration.
	api.GET("/integrations/odoo/status", odoosync.StatusHandler)
	api.POST("/integrations/odoo/connect", odoosync.ConnectHandler)
	api.POST("/integrations/odoo/disconnect", odoosync.DisconnectHandler)
	api.POST("/integrations/odoo/settings", odoosync.UpdateSettingsHandler)
	api.POST("/integrations/odoo/sync", odoosync.TriggerSyncHandler)
	api.GET("/integrations/odoo/sync-runs", odoosync.HistoryHandler)
	api.POST("/integrations/odoo/sync-runs/:id/retry", odoosync.RetrySyncHandler)
	api.POST("/integrations/odoo/sync/brand", odoosync.SyncEntityHandler(odoosync.EntityTypeBrand))
	api.POST("/integrations/odoo/sync/product", odoosync.SyncEntityHandler(odoosync.EntityTypeProduct))
	api.POST("/integrations/odoo/sync/payment-method", odoosync.SyncEntityHandler(odoosync.EntityTypePaymentMethod))
	api.POST("/integrations/odoo/sync/customer", odoosync.SyncEntityHandler(odoosync.EntityTypeCustomer))

	// Pub/Sub push endpoint for the sync worker.
	r.POST("/pubsub/odoo-sync", odoosync.PubSubPushHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	models.MigrateTable()
	ensureTopics(logger)

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

// ensureTopics creates the configured Pub/Sub topics when they don't exist
// yet, so a fresh environment works without console setup. Best effort: a
// failure is logged and the first publish will surface it again.
func ensureTopics(logger *logrus.Logger) {
	var topics []string
	for _, env := range []string{"PUBSUB_JOB_EVENTS_TOPIC", "ODOO_SYNC_TOPIC"} {
		if v := os.Getenv(env); v != "" {
			topics = append(topics, v)
		}
	}
	topics = utils.UniqueSlice(topics)
	if len(topics) == 0 {
		return
	}

	client, err := config.GetClient(context.Background())
	if err != nil {
		config.LogError(logger, "main", "ensureTopics", "init pubsub client", topics, err)
		return
	}
	for _, topic := range topics {
		if _, err := config.CreateTopicIfNotExists(client, topic); err != nil {
			config.LogError(logger, "main", "ensureTopics", "ensure topic", topic, err)
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
