// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package ble

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nollvik/sidetrackd/internal/bus"
	"github.com/nollvik/sidetrackd/internal/clock"
	"github.com/nollvik/sidetrackd/internal/config"
	"github.com/nollvik/sidetrackd/internal/logging"
	"github.com/nollvik/sidetrackd/internal/metrics"
	"github.com/nollvik/sidetrackd/internal/registry"
)

// Status is a point-in-time view of the link.
type Status struct {
	State             LinkState `json:"state"`
	AdapterPowered    bool      `json:"adapter_powered"`
	Address           string    `json:"address,omitempty"`
	Name              string    `json:"name,omitempty"`
	ReconnectAttempts int       `json:"reconnect_attempts"`
	BatteryPercent    uint8     `json:"battery_percent"`
	LastFace          uint8     `json:"last_face"`
}

// Manager owns the connection state machine for the tracking die. A
// single run loop consumes transport events, control requests and timer
// fires; it is the only writer of link state. Everything the rest of the
// daemon learns about the die arrives as bus events published from that
// loop.
type Manager struct {
	dial  func() (transport, error)
	bus   *bus.Bus
	store *registry.Store
	clk   clock.Clock
	cfg   config.BluetoothConfig

	requests chan managerRequest

	// Snapshot for readers - protected by mu
	mu       sync.Mutex
	running  bool
	runCtx   context.Context // done when the current Serve run ends
	snapshot Status
}

type requestKind int

const (
	reqDiscover requestKind = iota
	reqPair
	reqForget
)

// managerRequest is a control operation submitted to the run loop. The
// reply channel is buffered so the loop never blocks on a caller that
// gave up.
type managerRequest struct {
	kind    requestKind
	address string
	name    string
	reply   chan requestReply
}

type requestReply struct {
	devices []Discovered
	err     error
}

// connectResult reports an async connect attempt back to the loop.
type connectResult struct {
	gen int
	err error
}

// linkCore is the loop-owned state of the machine. Only the run loop
// touches it.
type linkCore struct {
	tr transport

	state    LinkState
	device   *registry.DeviceRecord
	powered  bool
	attempts int

	connected  bool // device-level link up
	subscribed bool // notifications flowing
	battery    uint8
	face       uint8

	connectGen     int
	connectPending bool
	connResults    chan connectResult

	retryTimer clock.Timer
	bgScanning bool

	disc *discoveryWindow
}

// discoveryWindow collects scan results until its timer fires.
type discoveryWindow struct {
	timer   clock.Timer
	found   map[string]Discovered
	waiters []chan requestReply
}

// NewManager builds a link manager that dials the system BlueZ daemon.
func NewManager(cfg config.BluetoothConfig, b *bus.Bus, store *registry.Store, clk clock.Clock) *Manager {
	m := newManager(cfg, b, store, clk)
	m.dial = func() (transport, error) { return newBlueZTransport(cfg) }
	return m
}

// newManager wires everything but the transport dialer.
func newManager(cfg config.BluetoothConfig, b *bus.Bus, store *registry.Store, clk clock.Clock) *Manager {
	return &Manager{
		bus:      b,
		store:    store,
		clk:      clk,
		cfg:      cfg,
		requests: make(chan managerRequest),
		snapshot: Status{State: StateIdle},
	}
}

// Serve runs the state machine until ctx is canceled. It satisfies
// suture.Service; a transport failure returns an error so the supervisor
// redials on restart.
func (m *Manager) Serve(ctx context.Context) error {
	tr, err := m.dial()
	if err != nil {
		return fmt.Errorf("dial bluetooth stack: %w", err)
	}
	defer tr.Close()

	core := &linkCore{
		tr:          tr,
		state:       StateIdle,
		connResults: make(chan connectResult, 4),
	}

	if rec, err := m.store.Device(ctx); err == nil {
		core.device = rec
	} else if !errors.Is(err, registry.ErrNoDevice) {
		logging.Warn().Err(err).Msg("Could not load remembered die")
	}

	powered, err := tr.AdapterPowered()
	if err != nil {
		logging.Warn().Err(err).Msg("Could not read adapter power state")
	}
	core.powered = powered
	metrics.UpdateAdapterPowered(powered)

	// runCtx lets submitters bail out on every exit path, including a
	// transport failure that leaves the outer context alive.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	m.mu.Lock()
	m.running = true
	m.runCtx = runCtx
	m.mu.Unlock()
	defer m.setRunning(false)

	logging.Info().
		Str("adapter", m.cfg.Adapter).
		Bool("powered", powered).
		Bool("paired", core.device != nil).
		Msg("Link manager started")

	if core.device != nil && core.powered {
		m.beginConnect(ctx, core)
	}
	m.syncSnapshot(core)

	for {
		// Shutdown wins over pending work.
		select {
		case <-ctx.Done():
			m.shutdown(ctx, core)
			return ctx.Err()
		default:
		}

		// Control requests preempt signal traffic.
		select {
		case req := <-m.requests:
			m.handleRequest(ctx, core, req)
			m.syncSnapshot(core)
			continue
		default:
		}

		var retryC, discC <-chan time.Time
		if core.retryTimer != nil {
			retryC = core.retryTimer.C()
		}
		if core.disc != nil {
			discC = core.disc.timer.C()
		}

		select {
		case <-ctx.Done():
			m.shutdown(ctx, core)
			return ctx.Err()
		case evt, ok := <-tr.Events():
			if !ok {
				m.shutdown(ctx, core)
				return fmt.Errorf("%w: signal stream closed", ErrLinkUnavailable)
			}
			m.handleEvent(ctx, core, evt)
		case res := <-core.connResults:
			m.handleConnectResult(core, res)
		case req := <-m.requests:
			m.handleRequest(ctx, core, req)
		case <-retryC:
			core.retryTimer = nil
			m.beginConnect(ctx, core)
		case <-discC:
			m.finishDiscovery(core)
		}
		m.syncSnapshot(core)
	}
}

// Status returns the current link snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// Discover runs a one-shot discovery window and returns the dice seen,
// strongest signal first. Concurrent calls share one window.
func (m *Manager) Discover(ctx context.Context) ([]Discovered, error) {
	reply, err := m.submit(ctx, managerRequest{kind: reqDiscover})
	if err != nil {
		return nil, err
	}
	return reply.devices, nil
}

// Pair remembers the die at address and starts connecting to it. The
// link comes up asynchronously; watch the bus for the connected event.
func (m *Manager) Pair(ctx context.Context, address, name string) error {
	_, err := m.submit(ctx, managerRequest{kind: reqPair, address: address, name: name})
	return err
}

// Forget drops the remembered die and returns the link to idle.
func (m *Manager) Forget(ctx context.Context) error {
	_, err := m.submit(ctx, managerRequest{kind: reqForget})
	return err
}

// submit hands a request to the run loop and waits for its reply.
func (m *Manager) submit(ctx context.Context, req managerRequest) (requestReply, error) {
	m.mu.Lock()
	running, runCtx := m.running, m.runCtx
	m.mu.Unlock()
	if !running || runCtx == nil {
		return requestReply{}, ErrNotRunning
	}

	req.reply = make(chan requestReply, 1)
	select {
	case m.requests <- req:
	case <-runCtx.Done():
		return requestReply{}, ErrNotRunning
	case <-ctx.Done():
		return requestReply{}, ctx.Err()
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
		return requestReply{}, ErrNotRunning
	case <-ctx.Done():
		return requestReply{}, ctx.Err()
	}
}

func (m *Manager) setRunning(v bool) {
	m.mu.Lock()
	m.running = v
	m.mu.Unlock()
}

// syncSnapshot mirrors loop state into the read side and the state gauge.
func (m *Manager) syncSnapshot(core *linkCore) {
	st := Status{
		State:             core.state,
		AdapterPowered:    core.powered,
		ReconnectAttempts: core.attempts,
		BatteryPercent:    core.battery,
		LastFace:          core.face,
	}
	if core.device != nil {
		st.Address = core.device.Address
		st.Name = core.device.Name
	}

	m.mu.Lock()
	m.snapshot = st
	m.mu.Unlock()

	metrics.SetLinkState(core.state.metricValue())
}

func (m *Manager) handleRequest(ctx context.Context, core *linkCore, req managerRequest) {
	switch req.kind {
	case reqDiscover:
		m.startDiscovery(core, req.reply)
	case reqPair:
		req.reply <- requestReply{err: m.pair(ctx, core, req.address, req.name)}
	case reqForget:
		req.reply <- requestReply{err: m.forget(ctx, core)}
	}
}

func (m *Manager) handleEvent(ctx context.Context, core *linkCore, evt linkEvent) {
	switch e := evt.(type) {
	case evtAdapterPowered:
		m.handleAdapterPowered(ctx, core, e.powered)
	case evtDeviceConnected:
		m.handleDeviceConnected(core, e)
	case evtServicesResolved:
		if core.device != nil && e.address == core.device.Address {
			m.completeLink(core)
		}
	case evtCharValue:
		m.handleCharValue(core, e)
	case evtDeviceSeen:
		m.handleDeviceSeen(ctx, core, e.device)
	}
}

// handleAdapterPowered reacts to the adapter power state. Powering off
// halts every retry until power returns; powering on starts over at the
// shortest backoff tier.
func (m *Manager) handleAdapterPowered(ctx context.Context, core *linkCore, powered bool) {
	if core.powered == powered {
		return
	}
	core.powered = powered
	metrics.UpdateAdapterPowered(powered)

	if !powered {
		logging.Warn().Msg("Adapter powered off, halting link activity")

		m.clearRetry(core)
		core.bgScanning = false
		core.connectGen++
		core.connectPending = false
		m.finishDiscovery(core)

		if core.connected {
			address := core.device.Address
			core.tr.DropSubscriptions(address)
			wasUp := core.subscribed
			core.connected = false
			core.subscribed = false
			metrics.RecordDisconnect()
			if wasUp {
				m.publishDisconnected(address, bus.ReasonAdapterOff)
			}
		}
		core.state = StateIdle
		return
	}

	logging.Info().Msg("Adapter powered on")
	core.attempts = 0
	metrics.UpdateLinkBackoff(0)
	if core.device != nil {
		m.beginConnect(ctx, core)
	}
}

// handleDeviceConnected tracks the device-level link. The die can dial
// in on its own; a rising edge with no attempt in flight is taken as a
// connect.
func (m *Manager) handleDeviceConnected(core *linkCore, e evtDeviceConnected) {
	if core.device == nil || e.address != core.device.Address {
		return
	}

	if e.connected {
		if core.connected {
			return
		}
		core.connected = true
		if !core.connectPending {
			m.clearRetry(core)
			core.state = StateConnecting
			m.completeLink(core)
		}
		return
	}

	if !core.connected {
		return
	}

	// Link dropped out from under us.
	address := e.address
	core.tr.DropSubscriptions(address)
	wasUp := core.subscribed
	core.connected = false
	core.subscribed = false
	core.connectGen++
	core.connectPending = false

	metrics.RecordDisconnect()
	logging.Warn().Str("address", address).Msg("Die disconnected")
	if wasUp {
		m.publishDisconnected(address, bus.ReasonRemote)
	}
	m.scheduleRetry(core)
}

// handleCharValue routes notification payloads from the die.
func (m *Manager) handleCharValue(core *linkCore, e evtCharValue) {
	if core.device == nil || e.address != core.device.Address {
		return
	}
	if len(e.value) == 0 {
		logging.Debug().Str("uuid", e.uuid).Msg("Empty notification payload")
		return
	}

	switch e.uuid {
	case orientationCharUUID:
		face := e.value[0]
		core.face = face
		metrics.RecordOrientationEvent()
		logging.Debug().Uint8("face", face).Msg("Orientation changed")

		evt := bus.NewOrientationEvent(m.clk.Now(), e.address, face)
		if err := m.bus.Publish(context.Background(), evt); err != nil {
			logging.Error().Err(err).Msg("Failed to publish orientation event")
		}

	case batteryCharUUID:
		m.recordBattery(core, e.value[0])
	}
}

// handleDeviceSeen feeds scan sightings to the discovery window and to
// background scanning. A sighting of the remembered die skips the rest
// of its backoff delay.
func (m *Manager) handleDeviceSeen(ctx context.Context, core *linkCore, device Discovered) {
	if core.disc != nil {
		if existing, dup := core.disc.found[device.Address]; !dup || existing.Name == "" {
			if !dup || device.Name != "" {
				core.disc.found[device.Address] = device
			}
		}
	}

	if core.bgScanning && core.device != nil && device.Address == core.device.Address && !core.connectPending && !core.connected {
		logging.Info().Str("address", device.Address).Msg("Die sighted during background scan")
		m.clearRetry(core)
		m.beginConnect(ctx, core)
	}
}

// beginConnect launches an async connect attempt for the remembered die.
func (m *Manager) beginConnect(ctx context.Context, core *linkCore) {
	if core.device == nil || !core.powered || core.connectPending || core.connected {
		return
	}
	m.clearRetry(core)

	core.connectGen++
	core.connectPending = true
	core.state = StateConnecting

	address := core.device.Address
	gen := core.connectGen
	timeout := m.cfg.ConnectTimeout
	tr := core.tr
	results := core.connResults

	logging.Info().Str("address", address).Int("attempt", core.attempts+1).Msg("Connecting to die")

	go func() {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		err := tr.Connect(cctx, address)
		select {
		case results <- connectResult{gen: gen, err: err}:
		case <-ctx.Done():
		}
	}()
}

// handleConnectResult finishes an async connect attempt.
func (m *Manager) handleConnectResult(core *linkCore, res connectResult) {
	if res.gen != core.connectGen {
		return // superseded by forget or a newer attempt
	}
	core.connectPending = false

	if res.err != nil {
		metrics.RecordReconnectAttempt(false)
		core.attempts++
		logging.Warn().Err(res.err).Int("attempts", core.attempts).Msg("Connect attempt failed")

		if errors.Is(res.err, ErrLinkUnavailable) {
			// Adapter went away mid-flight; the power signal drives
			// recovery.
			core.state = StateIdle
			return
		}
		m.scheduleRetry(core)
		return
	}

	core.connected = true
	m.completeLink(core)
}

// completeLink subscribes notifications and declares the link up. Called
// both when the connect call returns and when the GATT database resolves;
// whichever happens last completes the link.
func (m *Manager) completeLink(core *linkCore) {
	if core.subscribed || !core.connected || core.device == nil {
		return
	}
	address := core.device.Address

	if err := core.tr.Subscribe(address); err != nil {
		if errors.Is(err, errCharNotFound) {
			// GATT database still resolving; the resolved signal retries.
			logging.Debug().Str("address", address).Msg("Waiting for GATT database")
			return
		}
		m.failLink(core, err)
		return
	}
	core.subscribed = true
	core.state = StateConnected
	core.attempts = 0

	m.clearRetry(core)
	m.stopBackgroundScan(core)

	metrics.RecordConnect()
	metrics.RecordReconnectAttempt(true)
	metrics.UpdateLinkBackoff(0)

	logging.Info().Str("address", address).Str("name", core.device.Name).Msg("Die connected")

	evt := bus.NewConnectedEvent(m.clk.Now(), address, core.device.Name)
	if err := m.bus.Publish(context.Background(), evt); err != nil {
		logging.Error().Err(err).Msg("Failed to publish connect event")
	}

	if level, err := core.tr.ReadBattery(address); err == nil {
		m.recordBattery(core, level)
	} else {
		logging.Debug().Err(err).Msg("Initial battery read failed")
	}
}

// failLink abandons a link whose subscriptions cannot start.
func (m *Manager) failLink(core *linkCore, err error) {
	address := core.device.Address
	logging.Warn().Err(err).Str("address", address).Msg("Link unusable, dropping")

	if derr := core.tr.Disconnect(address); derr != nil {
		logging.Debug().Err(derr).Msg("Disconnect failed")
	}
	core.tr.DropSubscriptions(address)
	core.connected = false
	core.subscribed = false
	core.attempts++
	metrics.RecordReconnectAttempt(false)
	m.scheduleRetry(core)
}

// scheduleRetry arms the next reconnect attempt at the tier the attempt
// count selects, adding passive scanning once the die has been gone long
// enough.
func (m *Manager) scheduleRetry(core *linkCore) {
	if core.device == nil || !core.powered {
		return
	}
	m.clearRetry(core)

	delay := reconnectDelay(core.attempts)
	core.retryTimer = m.clk.NewTimer(delay)
	core.state = StateAwaitingReconnect
	metrics.UpdateLinkBackoff(delay)

	if core.attempts >= backgroundScanAfter {
		m.startBackgroundScan(core)
	}

	logging.Info().
		Int("attempts", core.attempts).
		Dur("delay", delay).
		Bool("background_scan", core.bgScanning).
		Msg("Reconnect scheduled")
}

// startBackgroundScan opens a passive scan so a reappearing die is caught
// between timer fires.
func (m *Manager) startBackgroundScan(core *linkCore) {
	if core.bgScanning {
		core.state = StateBackgroundScanning
		return
	}
	if err := core.tr.StartDiscovery(); err != nil {
		logging.Warn().Err(err).Msg("Background scan failed to start")
		return
	}
	core.bgScanning = true
	core.state = StateBackgroundScanning
	logging.Info().Msg("Background scanning for die")
}

// stopBackgroundScan closes the passive scan, leaving a manual discovery
// window's scan alone.
func (m *Manager) stopBackgroundScan(core *linkCore) {
	if !core.bgScanning {
		return
	}
	core.bgScanning = false
	if core.disc == nil {
		if err := core.tr.StopDiscovery(); err != nil {
			logging.Debug().Err(err).Msg("Stop discovery failed")
		}
	}
}

func (m *Manager) clearRetry(core *linkCore) {
	if core.retryTimer != nil {
		core.retryTimer.Stop()
		core.retryTimer = nil
	}
}

// startDiscovery opens a discovery window or joins the one in flight.
func (m *Manager) startDiscovery(core *linkCore, reply chan requestReply) {
	if core.disc != nil {
		core.disc.waiters = append(core.disc.waiters, reply)
		return
	}

	if !core.powered {
		metrics.RecordDiscovery("unavailable")
		reply <- requestReply{err: fmt.Errorf("%w: adapter powered off", ErrLinkUnavailable)}
		return
	}

	if err := core.tr.StartDiscovery(); err != nil {
		metrics.RecordDiscovery("failed")
		reply <- requestReply{err: err}
		return
	}

	core.disc = &discoveryWindow{
		timer:   m.clk.NewTimer(m.cfg.DiscoveryWindow),
		found:   make(map[string]Discovered),
		waiters: []chan requestReply{reply},
	}
	if core.state == StateIdle {
		core.state = StateScanning
	}
	logging.Info().Dur("window", m.cfg.DiscoveryWindow).Msg("Discovery window opened")
}

// finishDiscovery closes the window and answers every waiter with the
// deduplicated results.
func (m *Manager) finishDiscovery(core *linkCore) {
	disc := core.disc
	if disc == nil {
		return
	}
	core.disc = nil
	disc.timer.Stop()

	// Merge the authoritative snapshot. InterfacesAdded only fires for
	// devices BlueZ had never seen, and live sightings may lack names.
	if known, err := core.tr.KnownDevices(); err == nil {
		for _, device := range known {
			if existing, dup := disc.found[device.Address]; !dup || existing.Name == "" {
				disc.found[device.Address] = device
			}
		}
	} else {
		logging.Warn().Err(err).Msg("Could not list known devices")
	}

	if !core.bgScanning {
		if err := core.tr.StopDiscovery(); err != nil {
			logging.Debug().Err(err).Msg("Stop discovery failed")
		}
	}

	devices := make([]Discovered, 0, len(disc.found))
	for _, device := range disc.found {
		if device.Name == "" && m.cfg.DeviceNameFilter != "" {
			continue
		}
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].RSSI != devices[j].RSSI {
			return devices[i].RSSI > devices[j].RSSI
		}
		return devices[i].Address < devices[j].Address
	})

	metrics.RecordDiscovery("completed")
	logging.Info().Int("devices", len(devices)).Msg("Discovery window closed")

	for _, waiter := range disc.waiters {
		waiter <- requestReply{devices: devices}
	}

	if core.state == StateScanning {
		core.state = StateIdle
	}
}

// pair remembers a die and starts connecting. An existing link to a
// different die is torn down first.
func (m *Manager) pair(ctx context.Context, core *linkCore, address, name string) error {
	if address == "" {
		return fmt.Errorf("pair: empty address")
	}

	if core.device != nil && core.connected && core.device.Address != address {
		m.dropLink(core, bus.ReasonReplaced)
	}

	if name == "" {
		if known, err := core.tr.KnownDevices(); err == nil {
			for _, device := range known {
				if device.Address == address {
					name = device.Name
					break
				}
			}
		}
	}

	rec := registry.DeviceRecord{Address: address, Name: name, PairedAt: m.clk.Now().UTC()}
	if err := m.store.SaveDevice(ctx, rec); err != nil {
		return fmt.Errorf("remember die: %w", err)
	}
	core.device = &rec
	core.attempts = 0
	m.clearRetry(core)

	logging.Info().Str("address", address).Str("name", name).Msg("Die paired")

	if core.powered && !core.connected {
		m.beginConnect(ctx, core)
	}
	return nil
}

// forget clears the remembered die and stops all reconnect activity.
func (m *Manager) forget(ctx context.Context, core *linkCore) error {
	if core.device == nil {
		return ErrNoDevicePaired
	}
	address := core.device.Address

	if core.connected {
		m.dropLink(core, bus.ReasonForgotten)
	}
	core.connectGen++
	core.connectPending = false
	m.clearRetry(core)
	m.stopBackgroundScan(core)

	if err := m.store.ForgetDevice(ctx); err != nil {
		return fmt.Errorf("forget die: %w", err)
	}
	if err := core.tr.RemoveDevice(address); err != nil {
		logging.Debug().Err(err).Msg("Remove device failed")
	}

	core.device = nil
	core.attempts = 0
	core.state = StateIdle
	core.face = 0
	core.battery = 0

	logging.Info().Str("address", address).Msg("Die forgotten")
	return nil
}

// dropLink tears down an established link and tells the daemon about it.
func (m *Manager) dropLink(core *linkCore, reason string) {
	address := core.device.Address
	if err := core.tr.Disconnect(address); err != nil {
		logging.Warn().Err(err).Msg("Disconnect failed")
	}
	core.tr.DropSubscriptions(address)
	wasUp := core.subscribed
	core.connected = false
	core.subscribed = false
	core.connectGen++
	core.connectPending = false
	metrics.RecordDisconnect()
	if wasUp {
		m.publishDisconnected(address, reason)
	}
}

func (m *Manager) publishDisconnected(address, reason string) {
	evt := bus.NewDisconnectedEvent(m.clk.Now(), address, reason)
	if err := m.bus.Publish(context.Background(), evt); err != nil {
		logging.Error().Err(err).Msg("Failed to publish disconnect event")
	}
}

// recordBattery publishes a battery reading.
func (m *Manager) recordBattery(core *linkCore, level uint8) {
	core.battery = level
	metrics.UpdateBatteryLevel(level)

	evt := bus.NewBatteryEvent(m.clk.Now(), core.device.Address, level)
	if err := m.bus.Publish(context.Background(), evt); err != nil {
		logging.Error().Err(err).Msg("Failed to publish battery event")
	}
}

// shutdown tears the link down cleanly on daemon exit.
func (m *Manager) shutdown(ctx context.Context, core *linkCore) {
	m.clearRetry(core)
	m.stopBackgroundScan(core)
	m.finishDiscovery(core)

	if core.connected && core.device != nil {
		m.dropLink(core, bus.ReasonShutdown)
	}
	core.state = StateIdle
	m.syncSnapshot(core)

	logging.Info().
		Str("component", "ble_manager").
		Str("reason", shutdownReason(ctx)).
		Msg("Link manager stopped")
}

// shutdownReason mirrors the context's cause for the shutdown log.
func shutdownReason(ctx context.Context) string {
	switch ctx.Err() {
	case context.Canceled:
		return "context_canceled"
	case context.DeadlineExceeded:
		return "context_deadline"
	default:
		return "unknown"
	}
}
