// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package tracker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/nollvik/sidetrackd/internal/bus"
	"github.com/nollvik/sidetrackd/internal/clock"
	"github.com/nollvik/sidetrackd/internal/config"
	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/metrics"
	"github.com/nollvik/sidetrackd/internal/registry"
	"github.com/nollvik/sidetrackd/internal/remote"
)

// shutdownCloseTimeout bounds the final session close when the daemon stops
// with tracking active. The loop context is already canceled at that point,
// so the close runs on its own deadline.
const shutdownCloseTimeout = 10 * time.Second

// Audit outcomes recorded only by the engine, next to the shared bus
// outcome strings.
const (
	auditOutcomeOpened  = "opened"
	auditOutcomeDrained = "drained"
)

// Client is the slice of the remote service the engine talks to. Both the
// plain HTTP client and its circuit-breaker wrapper satisfy it.
type Client interface {
	SubmitEntry(ctx context.Context, entry remote.TimeEntry) error
	FetchEntry(ctx context.Context, key string, from, to int64) (*remote.TimeEntry, error)
}

// Observer receives the outcome of every remote call for reachability edge
// detection.
type Observer interface {
	Observe(err error)
}

// Status is a point-in-time view of the engine for the control API.
type Status struct {
	Tracking       bool     `json:"tracking"`
	Session        *Session `json:"session,omitempty"`
	LastFace       uint8    `json:"last_face"`
	LinkUp         bool     `json:"link_up"`
	Reachable      bool     `json:"reachable"`
	BufferDepth    int      `json:"buffer_depth"`
	SessionsOpened int      `json:"sessions_opened"`
	LastOutcome    string   `json:"last_outcome,omitempty"`
}

type requestKind int

const (
	reqStop requestKind = iota
	reqMappings
)

type engineRequest struct {
	kind     requestKind
	mappings map[uint8]string
	reply    chan engineReply
}

type engineReply struct {
	outcome string
	err     error
}

// sessionCore is the loop-owned engine state. Nothing outside the run loop
// touches it.
type sessionCore struct {
	session   *Session
	lastFace  uint8
	linkUp    bool
	reachable bool
	buffer    entryBuffer
	mappings  map[uint8]string

	sessionsOpened int
	lastOutcome    string
}

// Engine owns the tracked session and the retry buffer.
type Engine struct {
	client   Client
	observer Observer
	bus      *bus.Bus
	store    *registry.Store
	clk      clock.Clock
	cfg      config.TrackingConfig

	// newKey generates session keys; tests swap it for a deterministic one.
	newKey func() string

	requests chan engineRequest

	// Snapshot for readers - protected by mu
	mu       sync.Mutex
	running  bool
	runCtx   context.Context
	snapshot Status
	buffered []remote.TimeEntry
	mappings map[uint8]string
}

// NewEngine builds the session engine. The store records the submission
// audit trail.
func NewEngine(cfg config.TrackingConfig, client Client, observer Observer, b *bus.Bus, store *registry.Store, clk clock.Clock) *Engine {
	return &Engine{
		client:   client,
		observer: observer,
		bus:      b,
		store:    store,
		clk:      clk,
		cfg:      cfg,
		newKey:   newActivityKey,
		requests: make(chan engineRequest),
		snapshot: Status{Reachable: true},
	}
}

// Serve runs the engine loop until ctx is canceled. It satisfies
// suture.Service; subscriptions are re-established on restart.
func (e *Engine) Serve(ctx context.Context) error {
	orientation, err := e.bus.Subscribe(ctx, bus.TopicOrientation)
	if err != nil {
		return fmt.Errorf("subscribe orientation: %w", err)
	}
	reachability, err := e.bus.Subscribe(ctx, bus.TopicReachability)
	if err != nil {
		return fmt.Errorf("subscribe reachability: %w", err)
	}
	connected, err := e.bus.Subscribe(ctx, bus.TopicLinkConnected)
	if err != nil {
		return fmt.Errorf("subscribe link connected: %w", err)
	}
	disconnected, err := e.bus.Subscribe(ctx, bus.TopicLinkDisconnected)
	if err != nil {
		return fmt.Errorf("subscribe link disconnected: %w", err)
	}

	core := &sessionCore{
		reachable: true,
		mappings:  e.cfg.FaceMappings(),
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	e.mu.Lock()
	e.running = true
	e.runCtx = runCtx
	e.mu.Unlock()
	defer e.setRunning(false)

	logging.Info().
		Int("mapped_faces", len(core.mappings)).
		Dur("short_session_cutoff", e.cfg.ShortSessionCutoff).
		Msg("Session engine started")

	e.syncSnapshot(core)

	for {
		// Shutdown wins over pending work.
		select {
		case <-ctx.Done():
			e.shutdown(ctx, core)
			return ctx.Err()
		default:
		}

		// Control requests preempt bus traffic.
		select {
		case req := <-e.requests:
			e.handleRequest(ctx, core, req)
			e.syncSnapshot(core)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			e.shutdown(ctx, core)
			return ctx.Err()
		case req := <-e.requests:
			e.handleRequest(ctx, core, req)
		case msg, ok := <-orientation:
			if !ok {
				return e.subscriptionClosed(ctx, core, "orientation")
			}
			e.handleOrientationMsg(ctx, core, msg)
		case msg, ok := <-reachability:
			if !ok {
				return e.subscriptionClosed(ctx, core, "reachability")
			}
			e.handleReachabilityMsg(ctx, core, msg)
		case msg, ok := <-connected:
			if !ok {
				return e.subscriptionClosed(ctx, core, "link connected")
			}
			e.handleConnectedMsg(core, msg)
		case msg, ok := <-disconnected:
			if !ok {
				return e.subscriptionClosed(ctx, core, "link disconnected")
			}
			e.handleDisconnectedMsg(core, msg)
		}
		e.syncSnapshot(core)
	}
}

// subscriptionClosed terminates the loop when a bus channel closes. During
// normal shutdown the subscription context is the loop context, so prefer
// reporting the cancellation.
func (e *Engine) subscriptionClosed(ctx context.Context, core *sessionCore, topic string) error {
	e.shutdown(ctx, core)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s subscription closed", topic)
}

// Status returns the current engine snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// BufferedEntries returns a copy of the undelivered entries in FIFO order.
func (e *Engine) BufferedEntries() []remote.TimeEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]remote.TimeEntry, len(e.buffered))
	copy(out, e.buffered)
	return out
}

// Mappings returns a copy of the face mapping currently in effect,
// including any runtime updates applied after startup.
func (e *Engine) Mappings() map[uint8]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.mappings)
}

// Stop closes the open session and reports the close outcome. The network
// round trip completes on the engine loop before Stop returns.
func (e *Engine) Stop(ctx context.Context) (string, error) {
	reply, err := e.submit(ctx, engineRequest{kind: reqStop})
	if err != nil {
		return "", err
	}
	return reply.outcome, nil
}

// UpdateMappings replaces the face mapping, typically after a config
// reload. An open session keeps its resolved activity until it closes.
func (e *Engine) UpdateMappings(ctx context.Context, mappings map[uint8]string) error {
	_, err := e.submit(ctx, engineRequest{kind: reqMappings, mappings: maps.Clone(mappings)})
	return err
}

// submit hands a request to the run loop and waits for its reply.
func (e *Engine) submit(ctx context.Context, req engineRequest) (engineReply, error) {
	e.mu.Lock()
	running, runCtx := e.running, e.runCtx
	e.mu.Unlock()
	if !running || runCtx == nil {
		return engineReply{}, ErrNotRunning
	}

	req.reply = make(chan engineReply, 1)
	select {
	case e.requests <- req:
	case <-runCtx.Done():
		return engineReply{}, ErrNotRunning
	case <-ctx.Done():
		return engineReply{}, ctx.Err()
	}

	select {
	case out := <-req.reply:
		return out, out.err
	case <-runCtx.Done():
		// The loop replies before it exits; prefer an answer it managed
		// to send.
		select {
		case out := <-req.reply:
			return out, out.err
		default:
		}
		return engineReply{}, ErrNotRunning
	case <-ctx.Done():
		return engineReply{}, ctx.Err()
	}
}

func (e *Engine) setRunning(v bool) {
	e.mu.Lock()
	e.running = v
	e.mu.Unlock()
}

// syncSnapshot mirrors loop state into the read side.
func (e *Engine) syncSnapshot(core *sessionCore) {
	st := Status{
		Tracking:       core.session != nil,
		LastFace:       core.lastFace,
		LinkUp:         core.linkUp,
		Reachable:      core.reachable,
		BufferDepth:    core.buffer.len(),
		SessionsOpened: core.sessionsOpened,
		LastOutcome:    core.lastOutcome,
	}
	if core.session != nil {
		s := *core.session
		st.Session = &s
	}
	buffered := core.buffer.snapshot()
	mappings := maps.Clone(core.mappings)

	e.mu.Lock()
	e.snapshot = st
	e.buffered = buffered
	e.mappings = mappings
	e.mu.Unlock()

	metrics.UpdateBufferDepth(core.buffer.len())
}

func (e *Engine) handleRequest(ctx context.Context, core *sessionCore, req engineRequest) {
	switch req.kind {
	case reqStop:
		if core.session == nil {
			req.reply <- engineReply{err: ErrNoSession}
			return
		}
		outcome := e.closeSession(ctx, core, e.clk.Now())
		req.reply <- engineReply{outcome: outcome}
	case reqMappings:
		core.mappings = req.mappings
		logging.Info().Int("mapped_faces", len(req.mappings)).Msg("Face mappings updated")
		req.reply <- engineReply{}
	}
}

func (e *Engine) handleOrientationMsg(ctx context.Context, core *sessionCore, msg *message.Message) {
	defer msg.Ack()

	evt, err := bus.Decode[bus.OrientationEvent](msg)
	if err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable orientation event")
		return
	}
	if evt.Face == core.lastFace {
		return
	}
	e.handleFaceChange(ctx, core, evt.Face)
}

func (e *Engine) handleReachabilityMsg(ctx context.Context, core *sessionCore, msg *message.Message) {
	defer msg.Ack()

	evt, err := bus.Decode[bus.ReachabilityEvent](msg)
	if err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable reachability event")
		return
	}
	core.reachable = evt.Reachable
	if evt.Reachable {
		e.drainBuffer(ctx, core)
	}
}

func (e *Engine) handleConnectedMsg(core *sessionCore, msg *message.Message) {
	defer msg.Ack()

	evt, err := bus.Decode[bus.ConnectedEvent](msg)
	if err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable link event")
		return
	}
	core.linkUp = true

	name := evt.Name
	if name == "" {
		name = evt.Address
	}
	e.notify("Die connected", name, bus.UrgencyLow)
}

func (e *Engine) handleDisconnectedMsg(core *sessionCore, msg *message.Message) {
	defer msg.Ack()

	evt, err := bus.Decode[bus.DisconnectedEvent](msg)
	if err != nil {
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable link event")
		return
	}
	core.linkUp = false

	// User-initiated teardowns (forget, re-pair, daemon exit) need no
	// alert; unexpected losses do.
	if evt.Reason != bus.ReasonRemote && evt.Reason != bus.ReasonAdapterOff {
		return
	}
	body := "Waiting for it to return"
	if core.session != nil {
		body = fmt.Sprintf("Tracking of %s continues", core.session.Activity)
	}
	e.notify("Die disconnected", body, bus.UrgencyNormal)
}

// handleFaceChange runs the page transition: close the open session fully,
// then open one for the new face when it is mapped.
func (e *Engine) handleFaceChange(ctx context.Context, core *sessionCore, face uint8) {
	now := e.clk.Now()

	if core.session != nil {
		e.closeSession(ctx, core, now)
	}
	core.lastFace = face

	activity, mapped := core.mappings[face]
	if !mapped {
		logging.Debug().Uint8("face", face).Msg("Face has no activity mapping, not tracking")
		return
	}
	e.openSession(ctx, core, face, activity, now)
}

// openSession starts tracking an activity. The zero-duration entry makes
// the activity visible on the service immediately; delivery failure buffers
// it without blocking the session.
func (e *Engine) openSession(ctx context.Context, core *sessionCore, face uint8, activity string, now time.Time) {
	sess := &Session{
		Face:        face,
		Activity:    activity,
		ActivityKey: e.newKey(),
		StartedAt:   now,
	}
	core.session = sess
	core.sessionsOpened++
	metrics.RecordSessionOpened()

	entry := remote.NewEntry(sess.ActivityKey, activity, now.Unix(), now.Unix(), now)
	err := e.client.SubmitEntry(ctx, entry)
	e.observer.Observe(err)

	switch {
	case err == nil:
		e.audit(entry, auditOutcomeOpened, now)
		e.notify("Tracking "+activity, fmt.Sprintf("Die face %d", face), bus.UrgencyNormal)
	case errors.Is(err, remote.ErrRejected):
		logging.Warn().Err(err).Str("key", sess.ActivityKey).Msg("Opening entry rejected")
		e.audit(entry, bus.OutcomeRejected, now)
		e.notify("Entry rejected", activity+" could not be recorded", bus.UrgencyCritical)
	default:
		e.bufferEntry(core, entry)
		logging.Warn().Err(err).Str("key", sess.ActivityKey).Msg("Opening entry buffered")
		e.audit(entry, bus.OutcomeBuffered, now)
		e.notify("Tracking "+activity, "Service offline, entry queued", bus.UrgencyNormal)
	}

	logging.Info().
		Str("key", sess.ActivityKey).
		Uint8("face", face).
		Str("activity", activity).
		Msg("Session opened")

	e.publishSession(bus.NewSessionStartedEvent(now, face, activity, sess.ActivityKey, now))
}

// closeSession finishes the open session and reports the close outcome.
// The session is always cleared and a stopped event always published,
// whatever the network decided.
func (e *Engine) closeSession(ctx context.Context, core *sessionCore, now time.Time) string {
	sess := core.session
	duration := now.Sub(sess.StartedAt)
	startUnix := sess.StartedAt.Unix()
	nowUnix := now.Unix()

	var outcome string
	if duration < e.cfg.ShortSessionCutoff {
		outcome = e.closeShortFlip(ctx, core, sess, startUnix, nowUnix, now)
	} else {
		outcome = e.closeWithResolution(ctx, core, sess, startUnix, nowUnix, now, duration)
	}

	core.session = nil
	core.lastOutcome = outcome
	metrics.RecordSessionClosed(outcome, duration)

	logging.Info().
		Str("key", sess.ActivityKey).
		Str("outcome", outcome).
		Dur("duration", duration).
		Msg("Session closed")

	e.publishSession(bus.NewSessionStoppedEvent(now, sess.Face, sess.Activity, sess.ActivityKey, sess.StartedAt, now, outcome))
	return outcome
}

// closeShortFlip cancels a session below the cutoff with a hidden entry.
// Short flips never consult the remote record.
func (e *Engine) closeShortFlip(ctx context.Context, core *sessionCore, sess *Session, startUnix, nowUnix int64, now time.Time) string {
	entry := remote.NewHiddenEntry(sess.ActivityKey, sess.Activity, startUnix, nowUnix, now)
	err := e.client.SubmitEntry(ctx, entry)
	e.observer.Observe(err)

	switch {
	case err == nil:
		e.audit(entry, bus.OutcomeHidden, now)
		e.notify("Discarded "+sess.Activity, "Flip too short to count", bus.UrgencyLow)
		return bus.OutcomeHidden
	case errors.Is(err, remote.ErrRejected):
		logging.Warn().Err(err).Str("key", sess.ActivityKey).Msg("Hidden cancel entry rejected")
		e.audit(entry, bus.OutcomeRejected, now)
		e.notify("Entry rejected", sess.Activity+" could not be cancelled", bus.UrgencyCritical)
		return bus.OutcomeRejected
	default:
		e.bufferEntry(core, entry)
		e.audit(entry, bus.OutcomeBuffered, now)
		e.notify("Discarded "+sess.Activity, "Service offline, cancel entry queued", bus.UrgencyLow)
		return bus.OutcomeBuffered
	}
}

// closeWithResolution reconciles the closing entry against whatever the
// service already holds for the session key.
func (e *Engine) closeWithResolution(ctx context.Context, core *sessionCore, sess *Session, startUnix, nowUnix int64, now time.Time, duration time.Duration) string {
	from := sess.StartedAt.Add(-e.cfg.Lookback).Unix()
	existing, err := e.client.FetchEntry(ctx, sess.ActivityKey, from, nowUnix)
	e.observer.Observe(err)
	if err != nil {
		if !errors.Is(err, remote.ErrRejected) {
			// Service down; do not guess at boundaries without the
			// remote record.
			entry := remote.NewEntry(sess.ActivityKey, sess.Activity, startUnix, nowUnix, now)
			e.bufferEntry(core, entry)
			e.audit(entry, bus.OutcomeBuffered, now)
			e.notify("Recorded "+sess.Activity, "Service offline, entry queued", bus.UrgencyNormal)
			return bus.OutcomeBuffered
		}
		logging.Warn().Err(err).Str("key", sess.ActivityKey).Msg("Conflict fetch rejected, keeping own boundaries")
		existing = nil
	}

	if existing != nil && existing.IsHidden() {
		// Another actor already cancelled this entry; resurrecting it
		// would undo their edit.
		logging.Debug().Str("key", sess.ActivityKey).Msg("Remote entry already hidden, abandoning close")
		e.audit(remote.NewEntry(sess.ActivityKey, sess.Activity, startUnix, nowUnix, now), bus.OutcomeStale, now)
		return bus.OutcomeStale
	}

	t1, t2, modified := resolveBoundaries(startUnix, nowUnix, existing, e.cfg.LiveGapMin, e.cfg.LiveGapMax)
	entry := remote.NewEntry(sess.ActivityKey, sess.Activity, t1, t2, now)
	err = e.client.SubmitEntry(ctx, entry)
	e.observer.Observe(err)

	switch {
	case err == nil && modified:
		e.audit(entry, bus.OutcomeModified, now)
		e.notify("Recorded "+sess.Activity, "Aligned with an existing remote entry", bus.UrgencyNormal)
		return bus.OutcomeModified
	case err == nil:
		e.audit(entry, bus.OutcomeSent, now)
		e.notify("Recorded "+sess.Activity, duration.Round(time.Second).String(), bus.UrgencyNormal)
		return bus.OutcomeSent
	case errors.Is(err, remote.ErrRejected):
		logging.Warn().Err(err).Str("key", sess.ActivityKey).Msg("Closing entry rejected")
		e.audit(entry, bus.OutcomeRejected, now)
		e.notify("Entry rejected", sess.Activity+" could not be recorded", bus.UrgencyCritical)
		return bus.OutcomeRejected
	default:
		e.bufferEntry(core, entry)
		e.audit(entry, bus.OutcomeBuffered, now)
		e.notify("Recorded "+sess.Activity, "Service offline, entry queued", bus.UrgencyNormal)
		return bus.OutcomeBuffered
	}
}

// resolveBoundaries decides the interval a closing entry covers given the
// existing remote record. The remote start wins whenever the two sides
// disagree about when the activity began, or when the remote end has
// drifted outside the still-live gap window; a degenerate remote interval
// keeps the local end.
func resolveBoundaries(startUnix, nowUnix int64, existing *remote.TimeEntry, gapMin, gapMax time.Duration) (t1, t2 int64, modified bool) {
	if existing == nil {
		return startUnix, nowUnix, false
	}

	gap := time.Duration(nowUnix-existing.T2) * time.Second
	if existing.T1 != startUnix || gap < gapMin || gap > gapMax {
		t2 = nowUnix
		if existing.T2 != existing.T1 {
			t2 = existing.T2
		}
		return existing.T1, t2, true
	}
	return startUnix, nowUnix, false
}

// drainBuffer retries every buffered entry once in FIFO order. Entries that
// fail again go back to the tail for the next reachability edge; rejected
// entries are dropped for good.
func (e *Engine) drainBuffer(ctx context.Context, core *sessionCore) {
	n := core.buffer.len()
	if n == 0 {
		return
	}
	logging.Info().Int("depth", n).Msg("Draining entry buffer")

	delivered := 0
	for i := 0; i < n; i++ {
		entry, ok := core.buffer.popFront()
		if !ok {
			break
		}

		err := e.client.SubmitEntry(ctx, entry)
		e.observer.Observe(err)
		switch {
		case err == nil:
			delivered++
			metrics.RecordBufferDrain(core.buffer.len())
			e.audit(entry, auditOutcomeDrained, e.clk.Now())
		case errors.Is(err, remote.ErrRejected):
			logging.Warn().Err(err).Str("key", entry.Key).Msg("Buffered entry rejected, dropping")
			e.audit(entry, bus.OutcomeRejected, e.clk.Now())
			e.notify("Queued entry rejected", entry.BaseLabel(), bus.UrgencyCritical)
		default:
			core.buffer.append(entry)
			logging.Debug().Err(err).Str("key", entry.Key).Msg("Buffered entry still undeliverable")
		}
	}

	logging.Info().
		Int("delivered", delivered).
		Int("remaining", core.buffer.len()).
		Msg("Entry buffer drain finished")

	if remaining := core.buffer.len(); remaining != n {
		e.publishBufferDepth(remaining)
	}
	if delivered > 0 {
		e.notify("Queued entries delivered", fmt.Sprintf("%d of %d sent", delivered, n), bus.UrgencyLow)
	}
}

// bufferEntry queues an undeliverable entry for the next drain pass and
// reports the new depth to metrics and the feed.
func (e *Engine) bufferEntry(core *sessionCore, entry remote.TimeEntry) {
	core.buffer.append(entry)
	depth := core.buffer.len()
	metrics.RecordBufferAppend(depth)
	e.publishBufferDepth(depth)
}

func (e *Engine) publishBufferDepth(depth int) {
	evt := bus.NewBufferDepthEvent(e.clk.Now(), depth)
	if err := e.bus.Publish(context.Background(), evt); err != nil {
		logging.Error().Err(err).Int("depth", depth).Msg("Failed to publish buffer depth")
	}
}

// audit records a submission disposition. Audit failures never fail the
// operation they describe.
func (e *Engine) audit(entry remote.TimeEntry, outcome string, at time.Time) {
	rec := registry.AuditRecord{
		Key:         entry.Key,
		Label:       entry.Label,
		T1:          entry.T1,
		T2:          entry.T2,
		Hidden:      entry.Hidden,
		Outcome:     outcome,
		SubmittedAt: at.UTC(),
	}
	if err := e.store.AppendAudit(context.Background(), rec); err != nil {
		logging.Error().Err(err).Str("key", entry.Key).Msg("Failed to append audit record")
	}
}

// notify enqueues a desktop notification through the sequencer.
func (e *Engine) notify(summary, body, urgency string) {
	evt := bus.NewNotifyRequestEvent(e.clk.Now(), summary, body, urgency)
	if err := e.bus.Publish(context.Background(), evt); err != nil {
		logging.Error().Err(err).Str("summary", summary).Msg("Failed to publish notification request")
	}
}

func (e *Engine) publishSession(evt *bus.SessionEvent) {
	if err := e.bus.Publish(context.Background(), evt); err != nil {
		logging.Error().Err(err).Str("kind", evt.Kind).Msg("Failed to publish session event")
	}
}

// shutdown closes any open session on its own deadline before the loop
// exits. A buffered result is lost with the process; the audit trail still
// records the attempt.
func (e *Engine) shutdown(ctx context.Context, core *sessionCore) {
	if core.session != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownCloseTimeout)
		e.closeSession(closeCtx, core, e.clk.Now())
		cancel()
	}
	e.syncSnapshot(core)

	logging.Info().
		Str("component", "session_engine").
		Str("reason", shutdownReason(ctx)).
		Msg("Session engine stopped")
}

func shutdownReason(ctx context.Context) string {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return "context_canceled"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "context_deadline"
	default:
		return "unknown"
	}
}
