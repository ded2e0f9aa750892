package handler

import (
	"context"
	"net/http"
	"time"

	"payrouter/internal/locking"
	httpx "payrouter/pkg/http"
	"payrouter/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	LockStore string `json:"lock_store,omitempty"`
}

// HealthHandler serves liveness and readiness. Readiness checks the database and the
// lock store.
type HealthHandler struct {
	mongoClient *mongo.Client
	locks       *locking.Manager
	log         *logger.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, locks *locking.Manager, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		locks:       locks,
		log:         log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httpx.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ready", Database: "ok", LockStore: "ok"}
	status := http.StatusOK

	if h.mongoClient != nil {
		if err := h.mongoClient.Ping(ctx, nil); err != nil {
			h.log.Error("Database health check failed", "error", err, "path", r.URL.Path)
			resp.Database = "error"
			status = http.StatusServiceUnavailable
		}
	}

	probe := locking.Key{MerchantID: "health", ResourceType: "probe", ResourceID: "ready"}
	if _, err := h.locks.IsHeld(ctx, probe); err != nil {
		h.log.Error("Lock store health check failed", "error", err, "path", r.URL.Path)
		resp.LockStore = "error"
		status = http.StatusServiceUnavailable
	}

	if status != http.StatusOK {
		resp.Status = "unavailable"
	}
	httpx.WriteJSON(w, status, resp)
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
