package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	ddEcho "gopkg.in/DataDog/dd-trace-go.v1/contrib/labstack/echo.v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/dimasromerop/portal-giav/db"
	"github.com/dimasromerop/portal-giav/db/migrations"
	"github.com/dimasromerop/portal-giav/docs"
	"github.com/dimasromerop/portal-giav/giav"
	"github.com/dimasromerop/portal-giav/lib/logging"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/dimasromerop/portal-giav/lib/tokens"
	"github.com/dimasromerop/portal-giav/lib/transport"
	"github.com/dimasromerop/portal-giav/rabbitmq"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"github.com/uptrace/bun/migrate"
)

// @title        Portal GIAV payments
// @version      1.0.0
// @description  Card payments for GIAV bookings through the Redsys gateway, with reconciliation against the ERP.

// @BasePath  /

// @securitydefinitions.oauth2.password  OAuth2Password
// @tokenUrl                             /auth
// @schemes                              https http

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        Authorization
func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := logging.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}
	defer dbConn.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Duration(c.DatabaseTimeout)*time.Second)
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(startupCtx)
	if err != nil {
		logger.Fatalf("Error initializing db migrator: %v", err)
	}
	group, err := migrator.Migrate(startupCtx)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}
	cancelStartup()
	if !group.IsZero() {
		logger.Infof("Migrated database to %s", group)
	}

	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401", "403"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	erp := giav.NewClient(giav.Options{
		Endpoint:      c.Giav.Endpoint,
		ApiKey:        c.Giav.ApiKey,
		Namespace:     c.Giav.Namespace,
		Timeout:       time.Duration(c.Giav.Timeout) * time.Second,
		PaymentMethod: c.Giav.PaymentMethod,
		OfficeID:      c.Giav.OfficeID,
		PageSize:      c.Giav.PageSize,
		MaxPages:      c.Giav.MaxPages,
		Logger:        logger,
	})
	store := service.NewBunIntentStore(dbConn)

	// mail events go to every configured sink, the log is the fallback
	publishers := service.MultiPublisher{}
	if c.RabbitMQUri != "" {
		rabbitmqClient, err := rabbitmq.Dial(c.RabbitMQUri,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithEventExchange(c.RabbitMQEventExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}
		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
		publishers = append(publishers, rabbitmqClient)
	}
	if c.MailerWebhookUrl != "" {
		publishers = append(publishers, service.NewWebhookPublisher(c.MailerWebhookUrl, logger))
	}
	if len(publishers) == 0 {
		publishers = append(publishers, &service.LogPublisher{Logger: logger})
	}

	svc := &service.PaymentService{
		Config: c,
		Store:  store,
		Erp:    erp,
		Ownership: &service.BookingOwnership{
			Store:     store,
			Directory: erp,
		},
		Events: publishers,
		Logger: logger,
	}

	//init echo server
	e := transport.InitEcho(c, logger)
	//if Datadog is configured, add datadog middleware
	if c.DatadogAgentUrl != "" {
		tracer.Start(tracer.WithAgentAddr(c.DatadogAgentUrl))
		defer tracer.Stop()
		e.Use(ddEcho.Middleware(ddEcho.WithServiceName("portal-giav")))
	}

	//Start Prometheus server if necessary
	var echoPrometheus *echo.Echo
	if c.EnablePrometheus {
		echoPrometheus = transport.NewPrometheusEcho(logger, e)
		go func() {
			if err := transport.StartPrometheusEcho(echoPrometheus, c.PrometheusPort); err != nil && err != http.ErrServerClosed {
				logger.Error(err)
			}
		}()
	}

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for starting payments
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(c.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(c.JWTSecret), strictRateLimitMiddleware, logMw)

	transport.RegisterEndpoints(svc, e, secured, securedWithStrictRateLimit, tokens.AdminTokenMiddleware(c.AdminToken, c.AdminTokenHash), logMw)

	//Swagger API docs
	docs.SwaggerInfo.Host = c.Host
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	var backgroundWg sync.WaitGroup
	backGroundCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	backgroundWg.Add(1)
	go func() {
		defer backgroundWg.Done()
		err := service.NewReconcileWorker(svc).Start(backGroundCtx)
		if err != nil && err != context.Canceled {
			sentry.CaptureException(err)
			//a misconfigured schedule is fatal, nothing would reconcile
			logger.Fatal(err)
		}
		logger.Info("Reconcile routine done")
	}()

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	if echoPrometheus != nil {
		if err := echoPrometheus.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	logger.Info("Portal payments exiting gracefully. Goodbye.")
}
