package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"training-orchestrator/core/endpoint"
	"training-orchestrator/core/models"
	"training-orchestrator/core/repository"
	"training-orchestrator/core/spec"

	"github.com/gorilla/mux"
)

// JobStore is the slice of the job repository the endpoint handler reads.
type JobStore interface {
	GetJob(name string) (*repository.JobRecord, error)
}

// EndpointHandler handles hosting endpoint HTTP requests. Deployed
// endpoints are session-scoped, so they are tracked in memory rather than
// the database.
type EndpointHandler struct {
	manager *endpoint.Manager
	builder *spec.Builder
	jobRepo JobStore

	mu        sync.RWMutex
	endpoints map[string]*models.Endpoint
}

// NewEndpointHandler creates a new endpoint handler
func NewEndpointHandler(manager *endpoint.Manager, builder *spec.Builder, jobRepo JobStore) *EndpointHandler {
	return &EndpointHandler{
		manager:   manager,
		builder:   builder,
		jobRepo:   jobRepo,
		endpoints: make(map[string]*models.Endpoint),
	}
}

// DeployRequest asks for an endpoint serving a succeeded job's artifact
type DeployRequest struct {
	JobName       string `json:"job_name"`
	InstanceType  string `json:"instance_type"`
	InstanceCount int    `json:"instance_count"`
}

// EndpointResponse is the wire form of an endpoint
type EndpointResponse struct {
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	InstanceType  string    `json:"instance_type"`
	InstanceCount int       `json:"instance_count"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Deploy handles POST /v1/endpoints. Provisioning takes minutes, so the
// wait runs on its own goroutine and the response reports Provisioning.
func (h *EndpointHandler) Deploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.jobRepo.GetJob(req.JobName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if rec.Status != models.JobStatusSucceeded {
		http.Error(w, "Job has not succeeded", http.StatusConflict)
		return
	}

	job, err := h.recordToJob(rec)
	if err != nil {
		http.Error(w, "Failed to reconstruct job spec: "+err.Error(), http.StatusInternalServerError)
		return
	}

	placeholder := &models.Endpoint{
		Name:          job.Name + "-ep",
		Status:        models.EndpointStatusProvisioning,
		InstanceType:  req.InstanceType,
		InstanceCount: req.InstanceCount,
		CreatedAt:     time.Now(),
	}
	h.mu.Lock()
	if _, exists := h.endpoints[placeholder.Name]; exists {
		h.mu.Unlock()
		http.Error(w, "Endpoint already exists for this job", http.StatusConflict)
		return
	}
	h.endpoints[placeholder.Name] = placeholder
	h.mu.Unlock()

	// The response is rendered from a snapshot taken before the deploy
	// goroutine starts; the goroutine publishes a replacement entry under
	// the lock rather than mutating the placeholder in place.
	resp := endpointResponse(placeholder)

	go func() {
		deployed, err := h.manager.Deploy(context.Background(), job, req.InstanceType, req.InstanceCount)
		if err != nil {
			log.Printf("Deploy of endpoint for job %s failed: %v", job.Name, err)
		}
		h.mu.Lock()
		defer h.mu.Unlock()
		if deployed != nil {
			h.endpoints[deployed.Name] = deployed
			return
		}
		failed := *placeholder
		failed.Status = models.EndpointStatusFailed
		if err != nil {
			failed.FailureReason = err.Error()
		}
		h.endpoints[failed.Name] = &failed
	}()

	writeJSON(w, http.StatusAccepted, resp)
}

// GetEndpoint handles GET /v1/endpoints/{name}
func (h *EndpointHandler) GetEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.lookup(r)
	if !ok {
		http.Error(w, "Endpoint not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, endpointResponse(ep))
}

// DeleteEndpoint handles DELETE /v1/endpoints/{name}
func (h *EndpointHandler) DeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.lookup(r)
	if !ok {
		http.Error(w, "Endpoint not found", http.StatusNotFound)
		return
	}

	if err := h.manager.Teardown(r.Context(), ep); err != nil {
		http.Error(w, "Failed to tear down endpoint: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, endpointResponse(ep))
}

// Predict handles POST /v1/endpoints/{name}/predict with a raw image body.
func (h *EndpointHandler) Predict(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.lookup(r)
	if !ok {
		http.Error(w, "Endpoint not found", http.StatusNotFound)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	resp, err := h.manager.Predict(r.Context(), ep, payload, r.Header.Get("Content-Type"))
	if err != nil {
		var perr *models.PreconditionError
		if errors.As(err, &perr) {
			http.Error(w, perr.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "Prediction failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(resp)
}

// recordToJob rebuilds the in-memory job a succeeded record describes,
// using the stored spec YAML.
func (h *EndpointHandler) recordToJob(rec *repository.JobRecord) (*models.TrainingJob, error) {
	jobSpec, err := h.builder.ParseJobSpec([]byte(rec.SpecYAML))
	if err != nil {
		return nil, err
	}
	return &models.TrainingJob{
		Name:             rec.Name,
		Spec:             jobSpec,
		Status:           rec.Status,
		ArtifactLocation: rec.ArtifactLocation,
		CreatedAt:        rec.CreatedAt,
	}, nil
}

func (h *EndpointHandler) lookup(r *http.Request) (*models.Endpoint, bool) {
	name := mux.Vars(r)["name"]
	h.mu.RLock()
	defer h.mu.RUnlock()
	ep, ok := h.endpoints[name]
	return ep, ok
}

func endpointResponse(ep *models.Endpoint) EndpointResponse {
	return EndpointResponse{
		Name:          ep.Name,
		Status:        string(ep.Status),
		InstanceType:  ep.InstanceType,
		InstanceCount: ep.InstanceCount,
		FailureReason: ep.FailureReason,
		CreatedAt:     ep.CreatedAt,
	}
}
