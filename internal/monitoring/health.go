package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-cgen/internal/logger"
)

// HealthStatus is served on /status.
type HealthStatus struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    time.Duration `json:"uptime"`
	System    SystemInfo    `json:"system"`
	Service   ServiceInfo   `json:"service"`
	Alerts    []Alert       `json:"alerts"`
}

type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
}

// ServiceInfo describes what the process is serving.
type ServiceInfo struct {
	Name   string   `json:"name"`
	Addr   string   `json:"addr"`
	Ready  bool     `json:"ready"`
	Assets []string `json:"assets"`
}

type Alert struct {
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthMonitor serves /health, /healthz, /status and /metrics.
type HealthMonitor struct {
	mu      sync.RWMutex
	start   time.Time
	service ServiceInfo
	assets  func() []string
	alerts  []Alert
	server  *http.Server
}

// NewHealthMonitor reports on a service. assets, when set, is called on every
// /status request to list what is being served.
func NewHealthMonitor(name, addr string, assets func() []string) *HealthMonitor {
	return &HealthMonitor{
		start:   time.Now(),
		service: ServiceInfo{Name: name, Addr: addr},
		assets:  assets,
	}
}

func (hm *HealthMonitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hm.handleHealth)
	mux.HandleFunc("/healthz", hm.handleHealth)
	mux.HandleFunc("/status", hm.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start serves Handler on addr in the background.
func (hm *HealthMonitor) Start(addr string) {
	hm.mu.Lock()
	hm.server = &http.Server{Addr: addr, Handler: hm.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := hm.server
	hm.mu.Unlock()

	go func() {
		logger.Log.Info("Health endpoints serving", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Health server error", "error", err)
		}
	}()
}

func (hm *HealthMonitor) Stop(ctx context.Context) error {
	hm.mu.RLock()
	srv := hm.server
	hm.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (hm *HealthMonitor) SetReady(ready bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.service.Ready = ready
}

// AddAlert records an alert. Any error-level alert makes the service unhealthy.
func (hm *HealthMonitor) AddAlert(level, component, message string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.alerts = append(hm.alerts, Alert{Level: level, Component: component, Message: message, Timestamp: time.Now()})
}

func (hm *HealthMonitor) ClearAlerts() {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.alerts = nil
}

func (hm *HealthMonitor) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := hm.Status()

	w.Header().Set("Content-Type", "application/json")
	if status.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    status.Status,
		"timestamp": status.Timestamp.Format(time.RFC3339),
	})
}

func (hm *HealthMonitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(hm.Status())
}

// Status is healthy when the service is ready and has no error alerts,
// degraded with warnings only, unhealthy otherwise.
func (hm *HealthMonitor) Status() HealthStatus {
	hm.mu.RLock()
	service := hm.service
	alerts := append([]Alert(nil), hm.alerts...)
	hm.mu.RUnlock()

	if hm.assets != nil {
		service.Assets = hm.assets()
	}

	status := "healthy"
	for _, a := range alerts {
		switch a.Level {
		case "error":
			status = "unhealthy"
		case "warning":
			if status == "healthy" {
				status = "degraded"
			}
		}
	}
	if !service.Ready {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Uptime:    time.Since(hm.start),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			OS:           runtime.GOOS,
			Arch:         runtime.GOARCH,
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
		},
		Service: service,
		Alerts:  alerts,
	}
}
