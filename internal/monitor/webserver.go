package monitor

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/WEILMAX/oma-tracking/internal/modal"
)

// WebServer serves analysis results over HTTP: a JSON status endpoint plus
// interactive charts of labeled modes and harmonic distances. Results are
// pushed in after a run with SetLabeledModes and SetReferences.
type WebServer struct {
	address string
	server  *http.Server

	mu        sync.RWMutex
	labeled   *modal.Table
	modalData *modal.Table
	roles     modal.Roles
	orders    []int
	refs      []modal.ReferenceCluster
}

// NewWebServer creates a server listening on address.
func NewWebServer(address string) *WebServer {
	ws := &WebServer{
		address: address,
		roles:   modal.DefaultRoles(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// SetLabeledModes installs the labeled mode table the chart handlers render.
func (ws *WebServer) SetLabeledModes(t *modal.Table, roles modal.Roles, orders []int) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.labeled = t
	ws.roles = roles
	ws.orders = orders
}

// SetModalData installs the rpm-bearing modal table the harmonics chart
// renders.
func (ws *WebServer) SetModalData(t *modal.Table) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.modalData = t
}

// SetReferences installs the tracked reference clusters.
func (ws *WebServer) SetReferences(refs []modal.ReferenceCluster) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.refs = refs
}

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/references", ws.handleReferences)
	mux.HandleFunc("/charts/modes", ws.handleModeChart)
	mux.HandleFunc("/charts/harmonics", ws.handleHarmonicsChart)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	rows := 0
	if ws.labeled != nil {
		rows = ws.labeled.Len()
	}
	nRefs := len(ws.refs)
	ws.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"labeled_rows":   rows,
		"reference_sets": nRefs,
	})
}

func (ws *WebServer) handleReferences(w http.ResponseWriter, r *http.Request) {
	ws.mu.RLock()
	refs := ws.refs
	ws.mu.RUnlock()

	if len(refs) == 0 {
		ws.writeJSONError(w, http.StatusNotFound, "no reference clusters loaded")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(refs)
}
