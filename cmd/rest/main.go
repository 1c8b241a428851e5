package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"chatbot-billing-be/internal/bootstrap"
	"chatbot-billing-be/internal/config"
	"chatbot-billing-be/internal/server"
	"chatbot-billing-be/internal/tracer"
	"chatbot-billing-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// Tracing (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.Tracing)
	defer shutdownTracer(context.Background())

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		container.Logger.Info("MAIN", "Starting mail worker", nil)
		if err := container.MailWorker.Start(ctx); err != nil {
			container.Logger.Error("MAIN", "Mail worker stopped", map[string]interface{}{"error": err.Error()})
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Fatal(err)
	}
}
