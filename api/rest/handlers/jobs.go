package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"training-orchestrator/core/models"
	"training-orchestrator/core/orchestrator"
	"training-orchestrator/core/repository"
	"training-orchestrator/core/spec"
	"training-orchestrator/storage"

	"github.com/gorilla/mux"
)

// JobHandler handles training-job HTTP requests
type JobHandler struct {
	builder   *spec.Builder
	orch      *orchestrator.Orchestrator
	jobRepo   *repository.JobRepository
	eventRepo *repository.EventRepository
	artifacts *storage.Manager
}

// NewJobHandler creates a new job handler
func NewJobHandler(builder *spec.Builder, orch *orchestrator.Orchestrator, jobRepo *repository.JobRepository, eventRepo *repository.EventRepository, artifacts *storage.Manager) *JobHandler {
	return &JobHandler{
		builder:   builder,
		orch:      orch,
		jobRepo:   jobRepo,
		eventRepo: eventRepo,
		artifacts: artifacts,
	}
}

// JobResponse is the wire form of a job record
type JobResponse struct {
	Name             string     `json:"name"`
	Status           string     `json:"status"`
	InstanceType     string     `json:"instance_type"`
	InstanceCount    int        `json:"instance_count"`
	ArtifactLocation string     `json:"artifact_location,omitempty"`
	FailureReason    string     `json:"failure_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// SubmitJob handles POST /v1/jobs. The body is the YAML job spec.
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	specYAML, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	jobSpec, err := h.builder.ParseJobSpec(specYAML)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, "Invalid job spec: "+verr.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.orch.Submit(r.Context(), jobSpec)
	if err != nil {
		var serr *models.SubmissionError
		if errors.As(err, &serr) {
			http.Error(w, "Job rejected: "+serr.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, "Failed to submit job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.jobRepo.CreateJob(job, string(specYAML)); err != nil {
		http.Error(w, "Failed to record job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, jobResponse(job))
}

// GetJob handles GET /v1/jobs/{name}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	rec, err := h.jobRepo.GetJob(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse(rec))
}

// ListJobs handles GET /v1/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var status *models.JobStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.JobStatus(s)
		status = &st
	}

	records, err := h.jobRepo.ListJobs(status, 100)
	if err != nil {
		http.Error(w, "Failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]JobResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, recordResponse(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// StopJob handles POST /v1/jobs/{name}/stop
func (h *JobHandler) StopJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	rec, err := h.jobRepo.GetJob(name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to fetch job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	job := &models.TrainingJob{Name: rec.Name, Status: rec.Status}
	if err := h.orch.Stop(r.Context(), job); err != nil {
		var perr *models.PreconditionError
		if errors.As(err, &perr) {
			http.Error(w, perr.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "Failed to stop job: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetJobEvents handles GET /v1/jobs/{name}/events
func (h *JobHandler) GetJobEvents(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	events, err := h.eventRepo.GetJobEvents(name)
	if err != nil {
		http.Error(w, "Failed to fetch events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type eventResponse struct {
		FromStatus string    `json:"from_status,omitempty"`
		ToStatus   string    `json:"to_status"`
		Reason     string    `json:"reason,omitempty"`
		CreatedAt  time.Time `json:"created_at"`
	}
	resp := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		e := eventResponse{
			ToStatus:  string(ev.ToStatus),
			Reason:    ev.Reason,
			CreatedAt: ev.CreatedAt,
		}
		if ev.FromStatus != nil {
			e.FromStatus = string(*ev.FromStatus)
		}
		resp = append(resp, e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetJobArtifacts handles GET /v1/jobs/{name}/artifacts
func (h *JobHandler) GetJobArtifacts(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	artifacts, err := h.artifacts.ListModelArtifacts(name)
	if err != nil {
		http.Error(w, "Failed to fetch artifacts: "+err.Error(), http.StatusInternalServerError)
		return
	}

	type artifactResponse struct {
		Type      string    `json:"type"`
		URI       string    `json:"uri"`
		CreatedAt time.Time `json:"created_at"`
	}
	resp := make([]artifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		resp = append(resp, artifactResponse{
			Type:      string(a.Type),
			URI:       a.URI,
			CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func jobResponse(job *models.TrainingJob) JobResponse {
	return JobResponse{
		Name:             job.Name,
		Status:           string(job.Status),
		InstanceType:     job.Spec.InstanceType,
		InstanceCount:    job.Spec.InstanceCount,
		ArtifactLocation: job.ArtifactLocation,
		FailureReason:    job.FailureReason,
		CreatedAt:        job.CreatedAt,
		StartedAt:        job.StartedAt,
		CompletedAt:      job.CompletedAt,
	}
}

func recordResponse(rec *repository.JobRecord) JobResponse {
	return JobResponse{
		Name:             rec.Name,
		Status:           string(rec.Status),
		InstanceType:     rec.InstanceType,
		InstanceCount:    rec.InstanceCount,
		ArtifactLocation: rec.ArtifactLocation,
		FailureReason:    rec.FailureReason,
		CreatedAt:        rec.CreatedAt,
		StartedAt:        rec.StartedAt,
		CompletedAt:      rec.CompletedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
