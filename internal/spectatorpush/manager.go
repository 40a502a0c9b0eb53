package spectatorpush

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"agent-arena/internal/events"
	"agent-arena/internal/spectatorpush/platforms"

	"github.com/rs/zerolog/log"
)

type breakerState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// Manager forwards arena events from the feed to chat webhooks through a
// worker pool with retries and a per-target circuit breaker.
type Manager struct {
	cfg      Config
	router   Router
	adapters map[string]platforms.Adapter

	dispatchCh chan pushJob
	retryQ     *retryQueue
	done       chan struct{}

	mu           sync.Mutex
	started      bool
	breakerByKey map[string]breakerState
}

func NewManager(cfg Config) *Manager {
	client := platforms.NewHTTPClient(cfg.RequestTimeout)
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.ConfigReload <= 0 {
		cfg.ConfigReload = time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	m := &Manager{
		cfg:    cfg,
		router: Router{},
		adapters: map[string]platforms.Adapter{
			"discord": platforms.NewDiscordAdapter(client),
			"feishu":  platforms.NewFeishuAdapter(client),
		},
		dispatchCh:   make(chan pushJob, cfg.DispatchBuffer),
		done:         make(chan struct{}),
		breakerByKey: map[string]breakerState{},
	}
	m.retryQ = newRetryQueue(m.dispatchCh, m.done)
	return m
}

// Start launches the workers and, when feed is non-nil, consumes it until
// ctx is done. It is a no-op when push is disabled or already started.
func (m *Manager) Start(ctx context.Context, feed *events.Buffer) error {
	if !m.cfg.Enabled {
		return nil
	}
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	if m.cfg.ConfigPath != "" {
		go m.watchConfigLoop(ctx)
	}
	if feed != nil {
		go m.consume(ctx, feed, feed.Subscribe())
	}
	go func() {
		<-ctx.Done()
		close(m.done)
	}()
	log.Info().Int("targets", len(m.currentTargets())).Int("workers", m.cfg.Workers).Msg("spectator_push_started")
	return nil
}

func (m *Manager) consume(ctx context.Context, feed *events.Buffer, ch chan events.Entry) {
	defer feed.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			m.handleEvent(e.Event)
		}
	}
}

func (m *Manager) handleEvent(ev events.Event) {
	formatted, ok := FormatMessage(ev)
	if !ok {
		return
	}
	for _, target := range m.router.MatchTargets(m.currentTargets(), ev) {
		job := pushJob{Target: target, Event: ev, Formatted: formatted}
		if target.Panel {
			job.Formatted.PanelKey = panelKey(target, ev)
			job.Terminal = ev.Type == events.TypeMatchSettled
		}
		if !m.enqueue(job) {
			metricPushDroppedTotal.Add(1)
		}
	}
}

func (m *Manager) enqueue(job pushJob) bool {
	select {
	case <-m.done:
		return false
	case m.dispatchCh <- job:
		metricPushQueuedTotal.Add(1)
		metricPushQueueLen.Set(int64(len(m.dispatchCh)))
		return true
	default:
		return false
	}
}

func (m *Manager) currentTargets() []PushTarget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PushTarget(nil), m.cfg.Targets...)
}

// watchConfigLoop swaps in the targets file whenever its content changes.
// A file that fails to parse leaves the current targets in place.
func (m *Manager) watchConfigLoop(ctx context.Context) {
	lastRaw := ""
	if raw, err := os.ReadFile(m.cfg.ConfigPath); err == nil {
		lastRaw = strings.TrimSpace(string(raw))
	}
	ticker := time.NewTicker(m.cfg.ConfigReload)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			raw, err := os.ReadFile(m.cfg.ConfigPath)
			if err != nil {
				metricPushConfigReloadError.Add(1)
				continue
			}
			next := strings.TrimSpace(string(raw))
			if next == lastRaw {
				continue
			}
			targets, err := parseTargetsJSON(next)
			if err != nil {
				metricPushConfigReloadError.Add(1)
				log.Warn().Err(err).Str("path", m.cfg.ConfigPath).Msg("spectator_push_reload_failed")
				continue
			}
			m.mu.Lock()
			m.cfg.Targets = targets
			m.mu.Unlock()
			lastRaw = next
			metricPushConfigReloadTotal.Add(1)
			log.Info().Int("targets", len(targets)).Msg("spectator_push_reloaded")
		}
	}
}
