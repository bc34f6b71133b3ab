package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/dimasromerop/portal-giav/db"
	"github.com/dimasromerop/portal-giav/db/models"
	"github.com/dimasromerop/portal-giav/giav"
	"github.com/dimasromerop/portal-giav/lib/logging"
	"github.com/dimasromerop/portal-giav/lib/service"
	"github.com/dimasromerop/portal-giav/rabbitmq"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// script to run reconciliation outside the server: drain due jobs once,
// list intents that could not be reconciled, or re-arm one of them
func main() {
	once := flag.Bool("once", false, "run every due reconcile job and exit")
	listFailed := flag.Bool("list-failed", false, "list failed intents")
	retry := flag.Int64("retry", 0, "re-arm reconciliation of an open intent by id")
	flag.Parse()

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

	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{Dsn: c.SentryDSN}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}
	defer dbConn.Close()

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

	publishers := service.MultiPublisher{&service.LogPublisher{Logger: logger}}
	if c.RabbitMQUri != "" {
		rabbitmqClient, err := rabbitmq.Dial(c.RabbitMQUri,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithEventExchange(c.RabbitMQEventExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}
		defer rabbitmqClient.Close()
		publishers = append(publishers, rabbitmqClient)
	}
	if c.MailerWebhookUrl != "" {
		publishers = append(publishers, service.NewWebhookPublisher(c.MailerWebhookUrl, logger))
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *retry > 0:
		intent, runAt, err := svc.RearmReconcile(ctx, *retry)
		if err != nil {
			logger.Fatalf("Re-arming intent %d: %v", *retry, err)
		}
		logger.Infof("Intent %d (%s) will be reconciled at %s", intent.ID, intent.Status, runAt.Format(time.RFC3339))
	case *listFailed:
		intents, err := svc.ListIntents(ctx, service.IntentFilter{Status: models.IntentStatusFailed, Limit: 1000})
		if err != nil {
			logger.Fatal(err)
		}
		for _, intent := range intents {
			fmt.Printf("%d\tbooking %d\t%s\t%d %s\tattempts %d\torder %s\n",
				intent.ID, intent.BookingID, intent.Status, intent.Amount, intent.Currency, intent.Attempts, intent.GatewayOrderID)
		}
	case *once:
		n, err := service.NewReconcileWorker(svc).Drain(ctx)
		if err != nil {
			sentry.CaptureException(err)
			logger.Error(err)
		}
		logger.Infof("Ran %d reconcile jobs", n)
	default:
		flag.Usage()
		os.Exit(2)
	}
}
