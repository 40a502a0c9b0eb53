package spectatorpush

import (
	"context"
	"errors"
	"time"

	"agent-arena/internal/spectatorpush/platforms"

	"github.com/rs/zerolog/log"
)

var errCircuitOpen = errors.New("circuit_open")

func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.dispatchCh:
			metricPushQueueLen.Set(int64(len(m.dispatchCh)))
			m.processJob(ctx, job)
		}
	}
}

func (m *Manager) processJob(ctx context.Context, job pushJob) {
	adapter := m.adapters[job.Target.Platform]
	if adapter == nil {
		metricPushDroppedTotal.Add(1)
		return
	}
	if err := m.beforeSend(job.key(), time.Now()); err != nil {
		metricPushCircuitOpenTotal.Add(1)
		m.retryOrDrop(job, err)
		return
	}
	if err := adapter.Send(ctx, job.Target.Endpoint, job.Target.Secret, toPlatformMessage(job.Formatted)); err != nil {
		metricPushFailedTotal.Add(1)
		m.afterFailure(job.key(), time.Now())
		m.retryOrDrop(job, err)
		return
	}
	metricPushSentTotal.Add(1)
	m.afterSuccess(job.key())
	if job.Terminal {
		if cleaner, ok := adapter.(platforms.PanelCleaner); ok {
			cleaner.ForgetPanel(job.Target.Endpoint, job.Formatted.PanelKey)
		}
	}
}

// retryOrDrop requeues job with exponential backoff until RetryMax.
func (m *Manager) retryOrDrop(job pushJob, err error) bool {
	if job.Attempt >= m.cfg.RetryMax {
		metricPushRetryDroppedTotal.Add(1)
		log.Warn().
			Err(err).
			Str("platform", job.Target.Platform).
			Str("event", job.Event.Type).
			Str("match_id", job.Event.MatchID).
			Int("attempts", job.Attempt+1).
			Msg("spectator_push_dropped")
		return false
	}
	job.Attempt++
	metricPushRetryTotal.Add(1)
	m.retryQ.Enqueue(job, m.cfg.RetryBase*time.Duration(1<<(job.Attempt-1)))
	return true
}

func (m *Manager) beforeSend(key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.breakerByKey[key]; !st.openUntil.IsZero() && now.Before(st.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (m *Manager) afterFailure(key string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.breakerByKey[key]
	st.consecutiveFailures++
	if st.consecutiveFailures >= m.cfg.FailureThreshold {
		st.openUntil = now.Add(m.cfg.CircuitOpenDuration)
		st.consecutiveFailures = 0
	}
	m.breakerByKey[key] = st
}

func (m *Manager) afterSuccess(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.breakerByKey, key)
}

func toPlatformMessage(msg FormattedMessage) platforms.Message {
	fields := make([]platforms.Field, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, platforms.Field{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return platforms.Message{
		PanelKey:    msg.PanelKey,
		Title:       msg.Title,
		Content:     msg.Content,
		Description: msg.Description,
		Color:       msg.Color,
		Timestamp:   msg.Timestamp,
		Footer:      msg.Footer,
		Fields:      fields,
	}
}
