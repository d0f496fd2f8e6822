package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crewbase/crewbase/internal/session"
)

// snapshot is the last successfully assembled view of the suite.
type snapshot struct {
	PolledAt    time.Time        `json:"polled_at"`
	Pipelines   []map[string]any `json:"pipelines"`
	Deployments []map[string]any `json:"deployments"`
}

type poller struct {
	baseURL    string
	mgr        *session.Manager
	logger     *zap.Logger
	httpClient *http.Client

	mu   sync.RWMutex
	last *snapshot
}

func newPoller(baseURL string, mgr *session.Manager, logger *zap.Logger) *poller {
	return &poller{
		baseURL:    baseURL,
		mgr:        mgr,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *poller) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *poller) poll(ctx context.Context) {
	// Each poll counts as activity so the manager keeps refreshing the
	// machine session for as long as the daemon runs.
	p.mgr.Touch()

	s, ok := p.mgr.Get()
	if !ok {
		p.logger.Warn("no valid session, skipping poll")
		return
	}

	snap := snapshot{PolledAt: time.Now().UTC()}

	var pipelines struct {
		Pipelines []map[string]any `json:"pipelines"`
	}
	if err := p.fetch(ctx, s.AccessToken, "/api/v1/pipelines?limit=20", &pipelines); err != nil {
		p.logger.Warn("pipeline poll failed", zap.Error(err))
		return
	}
	snap.Pipelines = pipelines.Pipelines

	var deployments struct {
		Deployments []map[string]any `json:"deployments"`
	}
	if err := p.fetch(ctx, s.AccessToken, "/api/v1/deployments?limit=20", &deployments); err != nil {
		p.logger.Warn("deployment poll failed", zap.Error(err))
		return
	}
	snap.Deployments = deployments.Deployments

	p.mu.Lock()
	p.last = &snap
	p.mu.Unlock()

	p.logger.Debug("poll complete",
		zap.Int("pipelines", len(snap.Pipelines)),
		zap.Int("deployments", len(snap.Deployments)),
	)
}

func (p *poller) fetch(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *poller) handleStatus(w http.ResponseWriter, _ *http.Request) {
	p.mu.RLock()
	last := p.last
	p.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if last == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "no data yet"})
		return
	}
	_ = json.NewEncoder(w).Encode(last)
}
