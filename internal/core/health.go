package core

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout bounds all health probes together. A probe that does
// not answer in time is reported unhealthy.
const healthCheckTimeout = 2 * time.Second

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs all registered probes concurrently under a short
// deadline. Returns 200 when every probe is healthy, 503 otherwise. Mounted
// at GET /health, unauthenticated.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if len(s.Pingers) == 0 {
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]error, len(s.Pingers))
		wg      sync.WaitGroup
	)

	for _, probe := range s.Pingers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := probe.Pinger.Ping(ctx)
			mu.Lock()
			results[probe.Name] = err
			mu.Unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Probes still running are reported as timed out below.
	}

	mu.Lock()
	defer mu.Unlock()

	components := make(map[string]componentStatus, len(s.Pingers))
	healthy := true
	for _, probe := range s.Pingers {
		err, completed := results[probe.Name]
		switch {
		case !completed:
			healthy = false
			components[probe.Name] = componentStatus{Status: "unhealthy", Message: "health check timed out"}
		case err != nil:
			healthy = false
			components[probe.Name] = componentStatus{Status: "unhealthy", Message: err.Error()}
		default:
			components[probe.Name] = componentStatus{Status: "healthy"}
		}
	}

	resp := healthResponse{Status: "healthy", Components: components}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, resp)
}
