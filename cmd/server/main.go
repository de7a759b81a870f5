package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"training-orchestrator/api/rest/routes"
	"training-orchestrator/config"
	"training-orchestrator/core/endpoint"
	"training-orchestrator/core/orchestrator"
	"training-orchestrator/core/repository"
	"training-orchestrator/core/spec"
	"training-orchestrator/monitoring"
	"training-orchestrator/providers/aws"
	"training-orchestrator/storage"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database connected successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize AWS clients
	awsClient, err := aws.NewClient(ctx, cfg.Session)
	if err != nil {
		log.Fatalf("Failed to initialize AWS client: %v", err)
	}

	// Initialize spec builder
	builder, err := spec.NewBuilder(cfg.Session)
	if err != nil {
		log.Fatalf("Failed to initialize spec builder: %v", err)
	}

	// Initialize orchestrator and endpoint manager
	policy := orchestrator.DefaultPollPolicy()
	jobRepo := repository.NewJobRepository(db)
	orch := orchestrator.NewOrchestrator(awsClient, policy, jobRepo)
	manager := endpoint.NewManager(awsClient, policy)
	artifacts := storage.NewManager(awsClient, repository.NewArtifactRepository(db))

	// Start status sync
	sync := monitoring.NewStatusSync(jobRepo, jobRepo, awsClient, artifacts, 30*time.Second)
	go sync.Start(ctx)

	// Setup routes
	r := mux.NewRouter()
	routes.SetupRoutes(r, db, builder, orch, manager, artifacts)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
