package alerter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go-vortexguard/pkg/logger"
	"go-vortexguard/pkg/metrics"
	"go-vortexguard/pkg/models"
)

// EventStore persists alert events and reloads recent ones after a restart.
type EventStore interface {
	SaveAlertEvent(ctx context.Context, ev models.LookupEvent) error
	RecentAlerts(ctx context.Context, since time.Time) (map[string]time.Time, error)
}

// Alerter notifies a webhook about high and critical verdicts, at most once
// per subject within the cooldown.
type Alerter struct {
	store             EventStore
	webhookURL        string
	client            *http.Client
	alertHistory      map[string]time.Time // kind:subject -> last alert
	alertHistoryMu    sync.RWMutex
	alertCooldownTime time.Duration
	now               func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAlerter builds an alerter. store may be nil, and an empty webhookURL
// only persists events.
func NewAlerter(store EventStore, webhookURL string, cooldown time.Duration) *Alerter {
	a := &Alerter{
		store:             store,
		webhookURL:        webhookURL,
		client:            &http.Client{Timeout: 10 * time.Second},
		alertHistory:      make(map[string]time.Time),
		alertCooldownTime: cooldown,
		now:               time.Now,
		stopCh:            make(chan struct{}),
	}

	if err := a.loadRecentAlerts(); err != nil {
		logger.Log.Errorf("load recent alerts failed: %v", err)
	}
	return a
}

func (a *Alerter) loadRecentAlerts() error {
	if a.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	recent, err := a.store.RecentAlerts(ctx, a.now().Add(-a.alertCooldownTime))
	if err != nil {
		return err
	}

	a.alertHistoryMu.Lock()
	defer a.alertHistoryMu.Unlock()
	for key, at := range recent {
		a.alertHistory[key] = at
	}

	logger.Log.Infof("loaded %d recent alerts", len(recent))
	return nil
}

// Start runs the history cleanup loop until Stop.
func (a *Alerter) Start(interval time.Duration) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := a.CleanupOldHistory()
				logger.Log.Debugf("alert history cleaned: removed=%d", removed)
			case <-a.stopCh:
				return
			}
		}
	}()
}

func (a *Alerter) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}

func historyKey(ev models.LookupEvent) string {
	return string(ev.Kind) + ":" + ev.Subject
}

func shouldAlert(level models.ThreatLevel) bool {
	return level == models.ThreatHigh || level == models.ThreatCritical
}

// HandleEvent alerts on high and critical events outside the cooldown.
func (a *Alerter) HandleEvent(ctx context.Context, ev models.LookupEvent) error {
	if !shouldAlert(ev.ThreatLevel) {
		return nil
	}

	key := historyKey(ev)

	a.alertHistoryMu.RLock()
	lastAlertTime, exists := a.alertHistory[key]
	a.alertHistoryMu.RUnlock()

	now := a.now()
	if exists && now.Sub(lastAlertTime) < a.alertCooldownTime {
		logger.Log.Debugf("alert suppressed by cooldown: %s", key)
		return nil
	}

	if a.store != nil {
		if err := a.store.SaveAlertEvent(ctx, ev); err != nil {
			metrics.SinkFailures.WithLabelValues("mysql").Inc()
			logger.Log.Errorf("save alert event failed: %v", err)
		}
	}

	if a.webhookURL != "" {
		if err := a.sendAlertNotification(ctx, ev); err != nil {
			return fmt.Errorf("send alert notification: %w", err)
		}
		metrics.AlertsTriggered.Inc()
	}

	a.alertHistoryMu.Lock()
	a.alertHistory[key] = now
	a.alertHistoryMu.Unlock()

	logger.Log.Infof("alert triggered: kind=%s, subject=%s, level=%s, score=%.1f",
		ev.Kind, ev.Subject, ev.ThreatLevel, ev.Score)
	return nil
}

type alertPayload struct {
	Timestamp   string             `json:"timestamp"`
	Kind        models.LookupKind  `json:"kind"`
	Subject     string             `json:"subject"`
	ThreatLevel models.ThreatLevel `json:"threat_level"`
	Score       float64            `json:"score"`
	ClientIP    string             `json:"client_ip"`
	CheckedAt   string             `json:"checked_at"`
}

func (a *Alerter) sendAlertNotification(ctx context.Context, ev models.LookupEvent) error {
	alert := alertPayload{
		Timestamp:   models.FormatTime(a.now()),
		Kind:        ev.Kind,
		Subject:     ev.Subject,
		ThreatLevel: ev.ThreatLevel,
		Score:       ev.Score,
		ClientIP:    ev.ClientIP,
		CheckedAt:   models.FormatTime(ev.CheckedAt),
	}

	jsonData, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// CleanupOldHistory drops entries whose cooldown has passed.
func (a *Alerter) CleanupOldHistory() int {
	a.alertHistoryMu.Lock()
	defer a.alertHistoryMu.Unlock()

	now := a.now()
	removed := 0
	for key, lastAlertTime := range a.alertHistory {
		if now.Sub(lastAlertTime) > a.alertCooldownTime {
			delete(a.alertHistory, key)
			removed++
		}
	}
	return removed
}
