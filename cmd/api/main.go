package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"replenishment-service/internal/config"
	"replenishment-service/internal/gateway/sqlitejournal"
	"replenishment-service/internal/logger"
	"replenishment-service/internal/modal"
	"replenishment-service/internal/workflows"
)

type startReq struct {
	SKUID      string `json:"skuId"`
	LocationID string `json:"locationId"`
}

type startResp struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

// simulateReq evaluates facts under the loaded policy. Fields present in Policy override it.
type simulateReq struct {
	Facts  modal.Facts  `json:"facts"`
	Policy modal.Policy `json:"policy"`
}

type journalReader interface {
	List(ctx context.Context, limit int) ([]sqlitejournal.Entry, error)
	Get(ctx context.Context, journalID string) (sqlitejournal.Entry, error)
}

type server struct {
	tc      client.Client
	journal journalReader
	cfg     *config.Config
	policy  modal.Policy
	log     *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		zl.Fatal("load policy", zap.Error(err))
	}

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHostPort,
		Namespace: cfg.TemporalNamespace,
		Logger:    logger.NewTemporalLogger(zl),
	})
	if err != nil {
		zl.Fatal("unable to create Temporal client", zap.Error(err))
	}
	defer tc.Close()

	journal, err := sqlitejournal.Open(cfg.JournalPath)
	if err != nil {
		zl.Fatal("open journal", zap.Error(err))
	}
	defer journal.Close()

	s := &server{tc: tc, journal: journal, cfg: cfg, policy: policy, log: zl}

	zl.Info("api listening", zap.String("addr", cfg.APIAddr))
	if err := http.ListenAndServe(cfg.APIAddr, s.routes()); err != nil {
		zl.Fatal("api exited", zap.Error(err))
	}
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/replenishments/start", s.handleStart)
	r.Get("/replenishments/{workflowId}/record", s.handleRecord)
	r.Get("/replenishments/{workflowId}/audit", s.handleAudit)
	r.Post("/simulate", s.handleSimulate)

	registerUIRoutes(r, s)
	return r
}

// handleStart decides a single pair outside of a batch pass.
func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SKUID == "" || req.LocationID == "" {
		http.Error(w, "invalid body: {\"skuId\":\"...\",\"locationId\":\"...\"}", http.StatusBadRequest)
		return
	}

	opts := client.StartWorkflowOptions{
		ID:                                       fmt.Sprintf("replenish-%s-%s-%d", req.SKUID, req.LocationID, time.Now().Unix()),
		TaskQueue:                                s.cfg.TaskQueue,
		WorkflowExecutionTimeout:                 5 * time.Minute,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	we, err := s.tc.ExecuteWorkflow(ctx, opts, workflows.DecideReplenishment, workflows.Request{
		SKUID:           req.SKUID,
		LocationID:      req.LocationID,
		Policy:          s.policy,
		ActivityTimeout: s.cfg.ActivityTimeout,
		MaxAttempts:     s.cfg.ActivityMaxAttempts,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("workflow started", zap.String("workflow_id", we.GetID()),
		zap.String("sku_id", req.SKUID), zap.String("location_id", req.LocationID))

	writeJSON(w, startResp{WorkflowID: we.GetID(), RunID: we.GetRunID()})
}

func (s *server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.queryRecord(r.Context(), chi.URLParam(r, "workflowId"), r.URL.Query().Get("runId"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rec)
}

func (s *server) handleAudit(w http.ResponseWriter, r *http.Request) {
	events, err := s.queryAudit(r.Context(), chi.URLParam(r, "workflowId"), r.URL.Query().Get("runId"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

// handleSimulate is a what-if: the decision stages run without any collaborator side effects.
func (s *server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	req := simulateReq{Policy: s.policy}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body: {\"facts\":{...},\"policy\":{...}}", http.StatusBadRequest)
		return
	}
	if err := req.Policy.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, workflows.Evaluate(req.Facts, req.Policy))
}

func (s *server) queryRecord(ctx context.Context, wid, rid string) (modal.Record, error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	qr, err := s.tc.QueryWorkflow(cctx, wid, rid, workflows.RecordQuery)
	if err != nil {
		return modal.Record{}, err
	}
	var rec modal.Record
	return rec, qr.Get(&rec)
}

func (s *server) queryAudit(ctx context.Context, wid, rid string) ([]modal.AuditEvent, error) {
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	qr, err := s.tc.QueryWorkflow(cctx, wid, rid, workflows.AuditLogQuery)
	if err != nil {
		return nil, err
	}
	var events []modal.AuditEvent
	return events, qr.Get(&events)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
