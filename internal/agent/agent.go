package agent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codepulse/codepulse/internal/api"
	"github.com/codepulse/codepulse/internal/config"
	"github.com/codepulse/codepulse/internal/model"
	"github.com/codepulse/codepulse/internal/queue"
)

// Agent owns the heartbeat pipeline: activity signals in, heartbeats
// out, with offline queueing and daily-summary reconciliation. One Agent
// exists per host session.
type Agent struct {
	mu     sync.Mutex
	cfg    config.Config
	client *api.Client

	q       queue.Queue
	tally   *Tally
	status  *Status
	monitor *Monitor
	emitter *Emitter
	recon   *Reconciler
	log     *logrus.Logger

	// flushing serializes flush passes so two overlapping triggers
	// cannot double-send or double-remove a batch.
	flushing atomic.Bool

	flushKick     chan struct{}
	reconcileKick chan struct{}

	// sendFn dispatches a built heartbeat; the default delivers on a
	// fresh goroutine so a slow network call never delays the next
	// activity signal. Tests substitute a synchronous hook.
	sendFn func(model.Heartbeat)
}

func New(cfg config.Config, q queue.Queue, log *logrus.Logger) *Agent {
	if log == nil {
		log = logrus.New()
	}
	tally := NewTally()
	a := &Agent{
		cfg:           cfg,
		client:        api.New(cfg.APIURL, cfg.APIKey).WithUnaryTimeout(cfg.RequestTimeout),
		q:             q,
		tally:         tally,
		status:        NewStatus(),
		monitor:       NewMonitor(cfg.InactivityThreshold, tally),
		emitter:       NewEmitter(cfg.HeartbeatInterval, cfg.Editor, cfg.OS),
		log:           log,
		flushKick:     make(chan struct{}, 1),
		reconcileKick: make(chan struct{}, 1),
	}
	a.recon = NewReconciler(summaryVia{a}, tally)
	a.sendFn = func(hb model.Heartbeat) {
		go a.deliver(context.Background(), hb)
	}
	a.status.OnOnlineUp(a.kickFlush)
	return a
}

func (a *Agent) Status() *Status   { return a.status }
func (a *Agent) Tally() *Tally     { return a.tally }
func (a *Agent) Monitor() *Monitor { return a.monitor }

// HandleSignal dispatches one inbound host signal.
func (a *Agent) HandleSignal(sig model.Signal) {
	now := sig.Time
	if now.IsZero() {
		now = time.Now()
	}
	switch sig.Type {
	case model.SignalDocumentChanged:
		a.OnDocumentChanged(sig, now)
	case model.SignalDocumentSaved:
		a.OnDocumentSaved(sig, now)
	case model.SignalDocumentSwitched:
		a.OnActiveDocumentSwitched(sig, now)
	case model.SignalFocusChanged:
		a.OnWindowFocusChanged(sig.Focused, now)
	default:
		a.log.WithField("type", sig.Type).Debug("ignoring unknown signal")
	}
}

func (a *Agent) OnDocumentChanged(sig model.Signal, now time.Time) {
	a.monitor.RecordInteraction(now)
	a.monitor.SetActiveDocument(sig.File, sig.Language, sig.Project, sig.Branch)
	a.maybeSend(now, false)
	a.publishTotal()
}

func (a *Agent) OnDocumentSaved(sig model.Signal, now time.Time) {
	a.monitor.RecordInteraction(now)
	a.monitor.SetActiveDocument(sig.File, sig.Language, sig.Project, sig.Branch)
	a.maybeSend(now, true)
	a.publishTotal()
}

func (a *Agent) OnActiveDocumentSwitched(sig model.Signal, now time.Time) {
	a.monitor.RecordInteraction(now)
	a.monitor.SetActiveDocument(sig.File, sig.Language, sig.Project, sig.Branch)
	a.maybeSend(now, true)
	a.publishTotal()
}

func (a *Agent) OnWindowFocusChanged(focused bool, now time.Time) {
	a.monitor.SetFocused(focused, now)
	if !focused {
		// Blur stops the visible live counter immediately.
		a.status.SetTracking(false)
		return
	}
	a.monitor.RecordInteraction(now)
	a.maybeSend(now, true)
	a.publishTotal()
}

// PeriodicTick is the fixed-interval trigger. It sends only while an
// active document exists and the user is effectively active; otherwise
// it tells the UI tracking has stopped.
func (a *Agent) PeriodicTick(now time.Time) {
	_, _, _, _, ok := a.monitor.ActiveDocument()
	if !ok || !a.monitor.EffectivelyActive(now) {
		a.status.SetTracking(false)
		return
	}
	a.maybeSend(now, false)
}

// maybeSend applies the gating rules and hands at most one heartbeat to
// the dispatcher.
func (a *Agent) maybeSend(now time.Time, forced bool) {
	cfg := a.config()
	if !cfg.Enabled || !cfg.Configured() {
		return
	}
	file, language, project, branch, ok := a.monitor.ActiveDocument()
	if !ok {
		return
	}
	if project == "" {
		// No resolvable project is an expected state, not an error.
		return
	}
	if !a.emitter.ShouldSend(file, now, forced) {
		return
	}
	hb := a.emitter.Build(file, language, project, branch, now)
	a.status.SetTracking(true)
	a.sendFn(hb)
}

// deliver sends one heartbeat and classifies the outcome. A generated
// heartbeat always ends up delivered or queued, never dropped.
func (a *Agent) deliver(ctx context.Context, hb model.Heartbeat) {
	err := a.apiClient().SendHeartbeat(ctx, hb)
	switch {
	case err == nil:
		a.status.SetCredentialsValid(true)
		a.status.SetOnline(true)
		a.tally.ResetUnsynced()
		a.publishTotal()
		a.kickReconcile()
	case api.IsAuthError(err):
		// The key may become valid later; keep the heartbeat for the
		// periodic flush. 401 proves the server is reachable.
		a.log.WithError(err).Warn("heartbeat rejected: invalid credentials")
		a.status.SetCredentialsValid(false)
		a.enqueue(ctx, hb)
	default:
		a.log.WithError(err).Debug("heartbeat delivery failed, queueing")
		a.status.SetOnline(false)
		a.enqueue(ctx, hb)
	}
}

func (a *Agent) enqueue(ctx context.Context, hb model.Heartbeat) {
	if err := a.q.Enqueue(ctx, hb); err != nil {
		// Storage trouble must not crash the accumulation path.
		a.log.WithError(err).Error("enqueue heartbeat failed")
	}
}

// Flush drains the offline queue in bounded batches, preserving enqueue
// order. A failed batch stays at the front of the queue untouched and
// ends the pass so a down endpoint is not hammered. Overlapping calls
// collapse into one pass.
func (a *Agent) Flush(ctx context.Context) (delivered int, err error) {
	if !a.flushing.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer a.flushing.Store(false)

	cfg := a.config()
	if !cfg.Configured() {
		return 0, nil
	}

	for {
		batch, err := a.q.NextBatch(ctx, cfg.BatchSize)
		if err != nil {
			return delivered, err
		}
		if len(batch) == 0 {
			break
		}
		if err := a.apiClient().SendBatch(ctx, batch); err != nil {
			if api.IsAuthError(err) {
				a.status.SetCredentialsValid(false)
			} else {
				a.status.SetOnline(false)
			}
			return delivered, err
		}
		ids := make([]string, len(batch))
		for i, hb := range batch {
			ids[i] = hb.ID
		}
		if err := a.q.Remove(ctx, ids); err != nil {
			return delivered, err
		}
		delivered += len(batch)
		a.status.SetCredentialsValid(true)
		a.status.SetOnline(true)
		a.tally.ResetUnsynced()
		a.publishTotal()
	}
	if delivered > 0 {
		a.log.WithField("delivered", delivered).Info("offline queue flushed")
		a.kickReconcile()
	}
	return delivered, nil
}

// Reconcile fetches the server's today total and adopts it.
func (a *Agent) Reconcile(ctx context.Context, now time.Time) error {
	if !a.config().Configured() {
		return nil
	}
	if err := a.recon.Tick(ctx, now); err != nil {
		a.log.WithError(err).Debug("summary reconciliation failed, keeping last total")
		return err
	}
	a.publishTotal()
	return nil
}

// Run drives the timers until ctx is cancelled: the periodic heartbeat
// trigger, low-frequency queue flush, and summary reconciliation, plus
// the edge-triggered kicks from delivery outcomes.
func (a *Agent) Run(ctx context.Context) {
	a.fetchUserSettings(ctx)
	a.kickFlush()
	a.kickReconcile()

	cfg := a.config()
	heartbeat := time.NewTicker(cfg.HeartbeatInterval)
	flush := time.NewTicker(cfg.FlushInterval)
	summary := time.NewTicker(cfg.SummaryInterval)
	defer heartbeat.Stop()
	defer flush.Stop()
	defer summary.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			a.PeriodicTick(time.Now())
		case <-flush.C:
			a.runFlush(ctx)
		case <-a.flushKick:
			a.runFlush(ctx)
		case <-summary.C:
			_ = a.Reconcile(ctx, time.Now())
		case <-a.reconcileKick:
			_ = a.Reconcile(ctx, time.Now())
		}
	}
}

// ApplyConfig absorbs a hot-reloaded configuration. A changed API key
// resets the credential flag optimistically so queued heartbeats get
// retried on the next flush cycle. Emitter interval and inactivity
// threshold take effect immediately; the Run loop ticker periods apply
// on the next start.
func (a *Agent) ApplyConfig(cfg config.Config) {
	a.mu.Lock()
	keyChanged := cfg.APIKey != a.cfg.APIKey
	endpointChanged := keyChanged || cfg.APIURL != a.cfg.APIURL || cfg.RequestTimeout != a.cfg.RequestTimeout
	thresholdChanged := cfg.InactivityThreshold != a.cfg.InactivityThreshold
	a.cfg = cfg
	if endpointChanged {
		a.client = api.New(cfg.APIURL, cfg.APIKey).WithUnaryTimeout(cfg.RequestTimeout)
	}
	a.mu.Unlock()

	a.emitter.SetInterval(cfg.HeartbeatInterval)
	if thresholdChanged {
		// Only a deliberate edit overrides a remotely fetched threshold.
		a.monitor.SetThreshold(cfg.InactivityThreshold)
	}

	if keyChanged {
		a.log.Info("api key changed, retrying queued heartbeats")
		a.status.SetCredentialsValid(true)
		a.kickFlush()
	}
}

func (a *Agent) fetchUserSettings(ctx context.Context) {
	if !a.config().Configured() {
		return
	}
	settings, err := a.apiClient().FetchUserSettings(ctx)
	if err != nil {
		a.log.WithError(err).Debug("user settings fetch failed, keeping configured threshold")
		return
	}
	if settings.InactivityTimeoutMinutes > 0 {
		a.monitor.SetThreshold(time.Duration(settings.InactivityTimeoutMinutes) * time.Minute)
	}
}

func (a *Agent) runFlush(ctx context.Context) {
	if _, err := a.Flush(ctx); err != nil {
		a.log.WithError(err).Debug("queue flush stopped")
	}
}

func (a *Agent) publishTotal() {
	a.status.SetTotal(a.tally.Total())
}

func (a *Agent) kickFlush() {
	select {
	case a.flushKick <- struct{}{}:
	default:
	}
}

func (a *Agent) kickReconcile() {
	select {
	case a.reconcileKick <- struct{}{}:
	default:
	}
}

func (a *Agent) config() config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *Agent) apiClient() *api.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

// summaryVia routes the reconciler through the agent's current client so
// a hot-reloaded endpoint takes effect without rebuilding the reconciler.
type summaryVia struct{ a *Agent }

func (s summaryVia) FetchDailySummary(ctx context.Context, midnightOffsetSeconds int) (model.DailySummary, error) {
	return s.a.apiClient().FetchDailySummary(ctx, midnightOffsetSeconds)
}
