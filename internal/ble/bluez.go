// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package ble

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/nollvik/sidetrackd/internal/config"
	"github.com/nollvik/sidetrackd/internal/logging"
)

// BlueZ bus names and interfaces.
const (
	bluezBusName = "org.bluez"
	bluezRoot    = dbus.ObjectPath("/")

	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	charIface    = "org.bluez.GattCharacteristic1"

	propsIface = "org.freedesktop.DBus.Properties"
	omIface    = "org.freedesktop.DBus.ObjectManager"
)

// GATT identifiers for the tracking die.
const (
	dieServiceUUID      = "f1196f50-71a4-11e6-bdf4-0800200c9a66"
	orientationCharUUID = "f1196f52-71a4-11e6-bdf4-0800200c9a66" // Notify, byte 0 carries the face id
	batteryCharUUID     = "00002a19-0000-1000-8000-00805f9b34fb" // Read + Notify, percentage
)

// signalBufSize sizes the raw and translated signal channels. BlueZ is
// chatty during discovery; the buffer rides out short consumer stalls.
const signalBufSize = 32

// bluezTransport implements transport against the system bus.
type bluezTransport struct {
	conn        *dbus.Conn
	adapterPath dbus.ObjectPath
	nameFilter  string

	signals chan *dbus.Signal
	events  chan linkEvent

	// Notification routing - protected by mu
	mu    sync.Mutex
	chars map[dbus.ObjectPath]charInfo
}

// charInfo identifies a subscribed characteristic.
type charInfo struct {
	address string
	uuid    string
}

// newBlueZTransport connects to the system bus and starts translating
// BlueZ signal traffic into link events.
func newBlueZTransport(cfg config.BluetoothConfig) (*bluezTransport, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: system bus: %v", ErrLinkUnavailable, err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	if !slices.Contains(names, bluezBusName) {
		conn.Close()
		return nil, fmt.Errorf("%w: org.bluez not on system bus, is bluetoothd running", ErrLinkUnavailable)
	}

	matches := []string{
		"type='signal',interface='" + propsIface + "',member='PropertiesChanged',path_namespace='/org/bluez'",
		"type='signal',sender='" + bluezBusName + "',interface='" + omIface + "',member='InterfacesAdded'",
	}
	for _, match := range matches {
		if err := conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match).Err; err != nil {
			conn.Close()
			return nil, fmt.Errorf("add signal match: %w", err)
		}
	}

	t := &bluezTransport{
		conn:        conn,
		adapterPath: dbus.ObjectPath("/org/bluez/" + cfg.Adapter),
		nameFilter:  cfg.DeviceNameFilter,
		signals:     make(chan *dbus.Signal, signalBufSize),
		events:      make(chan linkEvent, signalBufSize),
		chars:       make(map[dbus.ObjectPath]charInfo),
	}
	conn.Signal(t.signals)
	go t.translate()

	return t, nil
}

// translate converts raw D-Bus signals into typed link events. It exits
// when the bus connection closes, handing the closure on to Events.
func (t *bluezTransport) translate() {
	defer close(t.events)

	for sig := range t.signals {
		switch sig.Name {
		case propsIface + ".PropertiesChanged":
			t.translateProps(sig)
		case omIface + ".InterfacesAdded":
			t.translateAdded(sig)
		}
	}
}

// translateProps handles PropertiesChanged across the BlueZ hierarchy.
func (t *bluezTransport) translateProps(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	switch iface {
	case adapterIface:
		if sig.Path != t.adapterPath {
			return
		}
		if powered, ok := changed["Powered"].Value().(bool); ok {
			t.emit(evtAdapterPowered{powered: powered})
		}

	case deviceIface:
		address := addressFromPath(sig.Path)
		if address == "" {
			return
		}
		if connected, ok := changed["Connected"].Value().(bool); ok {
			t.emit(evtDeviceConnected{address: address, connected: connected})
		}
		if resolved, ok := changed["ServicesResolved"].Value().(bool); ok && resolved {
			t.emit(evtServicesResolved{address: address})
		}
		// BlueZ reports scan sightings of already-known devices as RSSI
		// updates on the existing object, not InterfacesAdded.
		if rssi, ok := changed["RSSI"].Value().(int16); ok {
			t.emit(evtDeviceSeen{device: Discovered{Address: address, RSSI: rssi}})
		}

	case charIface:
		t.mu.Lock()
		info, known := t.chars[sig.Path]
		t.mu.Unlock()
		if !known {
			return
		}
		variant, present := changed["Value"]
		if !present {
			return
		}
		if value, ok := variant.Value().([]byte); ok {
			t.emit(evtCharValue{address: info.address, uuid: info.uuid, value: value})
		}
	}
}

// translateAdded surfaces devices appearing while a scan is open.
func (t *bluezTransport) translateAdded(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return
	}
	props, ok := ifaces[deviceIface]
	if !ok {
		return
	}
	device, ok := deviceFromProps(props)
	if !ok || !t.matchesFilter(device.Name) {
		return
	}
	t.emit(evtDeviceSeen{device: device})
}

// emit forwards an event to the Manager's stream. A full buffer drops the
// event rather than stalling signal delivery.
func (t *bluezTransport) emit(evt linkEvent) {
	select {
	case t.events <- evt:
	default:
		logging.Warn().Str("event", fmt.Sprintf("%T", evt)).Msg("Link event dropped, consumer stalled")
	}
}

// AdapterPowered reads the adapter's Powered property.
func (t *bluezTransport) AdapterPowered() (bool, error) {
	v, err := t.getProp(t.adapterPath, adapterIface, "Powered")
	if err != nil {
		return false, fmt.Errorf("%w: read adapter powered: %v", ErrLinkUnavailable, err)
	}
	powered, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: unexpected Powered type %T", ErrLinkUnavailable, v.Value())
	}
	return powered, nil
}

// StartDiscovery opens a filtered LE scan. BlueZ raises InProgress when a
// scan is already running; the shared scan serves this window just as
// well.
func (t *bluezTransport) StartDiscovery() error {
	adapter := t.conn.Object(bluezBusName, t.adapterPath)

	filter := map[string]dbus.Variant{
		"Transport": dbus.MakeVariant("le"),
		"UUIDs":     dbus.MakeVariant([]string{dieServiceUUID}),
	}
	if err := adapter.Call(adapterIface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		return fmt.Errorf("set discovery filter: %w", err)
	}

	if err := adapter.Call(adapterIface+".StartDiscovery", 0).Err; err != nil {
		switch {
		case dbusErrIs(err, "org.bluez.Error.InProgress"):
			return nil
		case dbusErrIs(err, "org.bluez.Error.NotReady"):
			return fmt.Errorf("%w: %v", ErrLinkUnavailable, err)
		default:
			return fmt.Errorf("start discovery: %w", err)
		}
	}
	return nil
}

// StopDiscovery closes the scan. BlueZ raises Failed when no scan is open
// for this client, which is fine here.
func (t *bluezTransport) StopDiscovery() error {
	err := t.conn.Object(bluezBusName, t.adapterPath).Call(adapterIface+".StopDiscovery", 0).Err
	if err != nil && !dbusErrIs(err, "org.bluez.Error.Failed") {
		return fmt.Errorf("stop discovery: %w", err)
	}
	return nil
}

// KnownDevices snapshots the devices BlueZ knows under the adapter that
// pass the name filter.
func (t *bluezTransport) KnownDevices() ([]Discovered, error) {
	objects, err := t.managedObjects()
	if err != nil {
		return nil, err
	}

	prefix := string(t.adapterPath) + "/"
	var devices []Discovered
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		device, ok := deviceFromProps(props)
		if !ok || !t.matchesFilter(device.Name) {
			continue
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// Connect dials the device. NotReady means the adapter cannot serve the
// call; an already established link satisfies it.
func (t *bluezTransport) Connect(ctx context.Context, address string) error {
	obj := t.conn.Object(bluezBusName, t.devicePath(address))
	if err := obj.CallWithContext(ctx, deviceIface+".Connect", 0).Err; err != nil {
		switch {
		case dbusErrIs(err, "org.bluez.Error.AlreadyConnected"):
			return nil
		case dbusErrIs(err, "org.bluez.Error.NotReady"):
			return fmt.Errorf("%w: %v", ErrLinkUnavailable, err)
		default:
			return fmt.Errorf("%w: %v", ErrConnectFailed, err)
		}
	}
	return nil
}

// Disconnect tears the link down. NotConnected is fine here.
func (t *bluezTransport) Disconnect(address string) error {
	obj := t.conn.Object(bluezBusName, t.devicePath(address))
	if err := obj.Call(deviceIface+".Disconnect", 0).Err; err != nil && !dbusErrIs(err, "org.bluez.Error.NotConnected") {
		return fmt.Errorf("disconnect %s: %w", address, err)
	}
	return nil
}

// Subscribe locates the orientation and battery characteristics in the
// resolved GATT database and starts notifications. Orientation is
// required; battery is best effort since not every die firmware exposes
// it.
func (t *bluezTransport) Subscribe(address string) error {
	objects, err := t.managedObjects()
	if err != nil {
		return err
	}

	devPrefix := string(t.devicePath(address)) + "/"
	found := make(map[string]dbus.ObjectPath, 2)
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), devPrefix) {
			continue
		}
		props, ok := ifaces[charIface]
		if !ok {
			continue
		}
		uuid, _ := props["UUID"].Value().(string)
		switch strings.ToLower(uuid) {
		case orientationCharUUID:
			found[orientationCharUUID] = path
		case batteryCharUUID:
			found[batteryCharUUID] = path
		}
	}

	orientationPath, ok := found[orientationCharUUID]
	if !ok {
		return fmt.Errorf("%w: orientation %s", errCharNotFound, orientationCharUUID)
	}

	// Register before StartNotify so the first Value signal is routed.
	t.mu.Lock()
	t.chars[orientationPath] = charInfo{address: address, uuid: orientationCharUUID}
	if batteryPath, ok := found[batteryCharUUID]; ok {
		t.chars[batteryPath] = charInfo{address: address, uuid: batteryCharUUID}
	}
	t.mu.Unlock()

	if err := t.conn.Object(bluezBusName, orientationPath).Call(charIface+".StartNotify", 0).Err; err != nil {
		t.DropSubscriptions(address)
		return fmt.Errorf("start orientation notify: %w", err)
	}

	if batteryPath, ok := found[batteryCharUUID]; ok {
		if err := t.conn.Object(bluezBusName, batteryPath).Call(charIface+".StartNotify", 0).Err; err != nil {
			logging.Debug().Err(err).Str("address", address).Msg("Battery notifications unavailable")
		}
	}
	return nil
}

// DropSubscriptions forgets notification routing for the device.
func (t *bluezTransport) DropSubscriptions(address string) {
	t.mu.Lock()
	for path, info := range t.chars {
		if info.address == address {
			delete(t.chars, path)
		}
	}
	t.mu.Unlock()
}

// ReadBattery reads the battery percentage characteristic.
func (t *bluezTransport) ReadBattery(address string) (uint8, error) {
	t.mu.Lock()
	var batteryPath dbus.ObjectPath
	for path, info := range t.chars {
		if info.address == address && info.uuid == batteryCharUUID {
			batteryPath = path
			break
		}
	}
	t.mu.Unlock()

	if batteryPath == "" {
		return 0, fmt.Errorf("%w: battery %s", errCharNotFound, batteryCharUUID)
	}

	var raw []byte
	err := t.conn.Object(bluezBusName, batteryPath).Call(charIface+".ReadValue", 0, map[string]dbus.Variant{}).Store(&raw)
	if err != nil {
		return 0, fmt.Errorf("read battery: %w", err)
	}
	if len(raw) == 0 {
		return 0, fmt.Errorf("read battery: empty value")
	}
	return raw[0], nil
}

// RemoveDevice drops the BlueZ record of the device so a later discovery
// starts clean. DoesNotExist is fine here.
func (t *bluezTransport) RemoveDevice(address string) error {
	adapter := t.conn.Object(bluezBusName, t.adapterPath)
	err := adapter.Call(adapterIface+".RemoveDevice", 0, t.devicePath(address)).Err
	if err != nil && !dbusErrIs(err, "org.bluez.Error.DoesNotExist") {
		return fmt.Errorf("remove device %s: %w", address, err)
	}
	return nil
}

// Events returns the typed signal stream.
func (t *bluezTransport) Events() <-chan linkEvent {
	return t.events
}

// Close shuts the bus connection down, which ends the signal stream and
// closes Events.
func (t *bluezTransport) Close() error {
	return t.conn.Close()
}

// getProp reads one property via the Properties interface.
func (t *bluezTransport) getProp(path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	var v dbus.Variant
	err := t.conn.Object(bluezBusName, path).Call(propsIface+".Get", 0, iface, prop).Store(&v)
	return v, err
}

// managedObjects snapshots the BlueZ object tree via the ObjectManager.
func (t *bluezTransport) managedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	if err := t.conn.Object(bluezBusName, bluezRoot).Call(omIface+".GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}
	return objects, nil
}

// devicePath builds the BlueZ object path for a device address.
func (t *bluezTransport) devicePath(address string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(address), ":", "_")
	return t.adapterPath + dbus.ObjectPath("/dev_"+escaped)
}

// addressFromPath recovers the device address from a BlueZ object path,
// including characteristic paths below the device.
func addressFromPath(path dbus.ObjectPath) string {
	s := string(path)
	i := strings.Index(s, "/dev_")
	if i < 0 {
		return ""
	}
	s = s[i+len("/dev_"):]
	if j := strings.IndexByte(s, '/'); j >= 0 {
		s = s[:j]
	}
	return strings.ReplaceAll(s, "_", ":")
}

// deviceFromProps extracts a Discovered from Device1 properties.
func deviceFromProps(props map[string]dbus.Variant) (Discovered, bool) {
	address, _ := props["Address"].Value().(string)
	if address == "" {
		return Discovered{}, false
	}
	name, _ := props["Name"].Value().(string)
	if name == "" {
		name, _ = props["Alias"].Value().(string)
	}
	rssi, _ := props["RSSI"].Value().(int16)
	return Discovered{Address: address, Name: name, RSSI: rssi}, true
}

// matchesFilter applies the configured device name prefix. An empty
// filter admits everything.
func (t *bluezTransport) matchesFilter(name string) bool {
	if t.nameFilter == "" {
		return true
	}
	return strings.HasPrefix(name, t.nameFilter)
}

// dbusErrIs reports whether err carries the named D-Bus error.
func dbusErrIs(err error, name string) bool {
	return err != nil && strings.Contains(err.Error(), name)
}
