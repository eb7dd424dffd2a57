package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"result-verification-system/config"
	"result-verification-system/events"
	"result-verification-system/handlers"
	"result-verification-system/middleware"
	"result-verification-system/services"
	"result-verification-system/stores"
	"result-verification-system/utils"
	"result-verification-system/workers"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}
	if err := stores.Migrate(db); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// In-process event bus; downstream consumers subscribe by topic.
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewStdLogger(false, false))
	publisher := events.NewWatermillPublisher(bus)

	var notifier events.Notifier = events.LogNotifier{}
	if cfg.NotificationWebhookURL != "" {
		notifier = events.NewWebhookNotifier(cfg.NotificationWebhookURL, cfg.GameServiceToken, utils.HTTPClient)
	}
	relay := events.NewRelay(bus, notifier)
	if err := relay.Start(ctx); err != nil {
		log.Fatal("failed to start notification relay:", err)
	}

	var proofs services.ProofLinker
	if cfg.Proof.Enabled() {
		store, err := utils.NewProofStore(ctx, cfg.Proof)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		proofs = store
	} else {
		log.Println("⚠️  PROOF_BUCKET not set, proof links are returned unsigned")
	}

	clock := clockwork.NewRealClock()
	repos := stores.NewStore(db)
	resolutionCfg := services.ResolutionConfig{
		AutoConfirmWindow:     cfg.AutoConfirmWindow,
		DismissResetsDeadline: cfg.DismissResetsDeadline,
		DefaultRating:         cfg.EloDefaultRating,
	}

	inbox := services.NewInboxService(repos, clock, proofs, services.InboxConfig{
		AttentionAge:    cfg.PendingAttentionAge,
		DefaultPageSize: cfg.InboxDefaultPageSize,
		MaxPageSize:     cfg.InboxMaxPageSize,
	})
	resolution := services.NewResolutionService(repos, services.NewRatingEngine(cfg.EloKFactor), publisher, clock, resolutionCfg)
	intake := services.NewIntakeService(repos, clock, resolutionCfg)

	sweep := workers.NewOverdueSweep(inbox, publisher, clock, cfg.SweepInterval)
	if err := sweep.Start(ctx); err != nil {
		log.Fatal("failed to start overdue sweep:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New())

	// 🔐❗ GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.GameServiceToken))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupResultRoutes(app, &handlers.ResultHandler{
		Inbox:      inbox,
		Resolution: resolution,
		Intake:     intake,
		Rankings:   repos.Rankings(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s", cfg.HTTPAddr)
	log.Printf("✅ Overdue sweep running (every %s)", cfg.SweepInterval)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", cfg.CORSOrigins())

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := sweep.Stop(); err != nil {
		log.Printf("Sweep shutdown: %v", err)
	}
	if err := bus.Close(); err != nil {
		log.Printf("Event bus shutdown: %v", err)
	}
	relay.Wait()
}
