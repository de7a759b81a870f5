package routes

import (
	"training-orchestrator/api/rest/handlers"
	"training-orchestrator/core/endpoint"
	"training-orchestrator/core/orchestrator"
	"training-orchestrator/core/repository"
	"training-orchestrator/core/spec"
	"training-orchestrator/storage"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, db *repository.DB, builder *spec.Builder, orch *orchestrator.Orchestrator, manager *endpoint.Manager, artifacts *storage.Manager) {
	jobRepo := repository.NewJobRepository(db)
	eventRepo := repository.NewEventRepository(db)
	jobHandler := handlers.NewJobHandler(builder, orch, jobRepo, eventRepo, artifacts)
	endpointHandler := handlers.NewEndpointHandler(manager, builder, jobRepo)

	api := r.PathPrefix("/v1").Subrouter()

	// Job endpoints
	api.HandleFunc("/jobs", jobHandler.SubmitJob).Methods("POST")
	api.HandleFunc("/jobs", jobHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{name}", jobHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{name}/stop", jobHandler.StopJob).Methods("POST")
	api.HandleFunc("/jobs/{name}/events", jobHandler.GetJobEvents).Methods("GET")
	api.HandleFunc("/jobs/{name}/artifacts", jobHandler.GetJobArtifacts).Methods("GET")

	// Hosting endpoints
	api.HandleFunc("/endpoints", endpointHandler.Deploy).Methods("POST")
	api.HandleFunc("/endpoints/{name}", endpointHandler.GetEndpoint).Methods("GET")
	api.HandleFunc("/endpoints/{name}", endpointHandler.DeleteEndpoint).Methods("DELETE")
	api.HandleFunc("/endpoints/{name}/predict", endpointHandler.Predict).Methods("POST")
}
