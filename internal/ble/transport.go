// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package ble

import "context"

// Discovered describes a candidate die seen by the adapter.
type Discovered struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	RSSI    int16  `json:"rssi"`
}

// transport is the slice of the Bluetooth stack the Manager drives. The
// production implementation talks to BlueZ over the system D-Bus; tests
// substitute a fake so the state machine runs without hardware.
type transport interface {
	// AdapterPowered reads the adapter's current power state.
	AdapterPowered() (bool, error)

	// StartDiscovery opens an LE scan. A scan already running, started by
	// this process or another, satisfies the call.
	StartDiscovery() error

	// StopDiscovery closes the scan opened by StartDiscovery.
	StopDiscovery() error

	// KnownDevices lists devices the stack currently knows that match the
	// configured name filter, including ones found by an open scan.
	KnownDevices() ([]Discovered, error)

	// Connect dials the device and returns once the link is up or ctx
	// expires. The GATT database may still be resolving when it returns.
	Connect(ctx context.Context, address string) error

	// Disconnect tears the link down.
	Disconnect(address string) error

	// Subscribe starts orientation and battery notifications. It fails
	// with errCharNotFound until the GATT database has resolved.
	Subscribe(address string) error

	// DropSubscriptions forgets the notification state for the device
	// without touching the link, for use after it is already gone.
	DropSubscriptions(address string)

	// ReadBattery reads the current battery percentage. Subscribe must
	// have succeeded first.
	ReadBattery(address string) (uint8, error)

	// RemoveDevice drops the stack's cached record of the device.
	RemoveDevice(address string) error

	// Events returns the typed signal stream. The channel closes when the
	// transport shuts down.
	Events() <-chan linkEvent

	// Close releases the transport.
	Close() error
}

// linkEvent is a typed notification translated from the stack's signal
// traffic. The Manager's run loop is the sole consumer.
type linkEvent interface {
	isLinkEvent()
}

// evtAdapterPowered reports the adapter power state changing.
type evtAdapterPowered struct {
	powered bool
}

// evtDeviceConnected reports the device-level link coming up or down.
type evtDeviceConnected struct {
	address   string
	connected bool
}

// evtServicesResolved reports the device's GATT database becoming ready.
type evtServicesResolved struct {
	address string
}

// evtCharValue carries a characteristic notification payload.
type evtCharValue struct {
	address string
	uuid    string
	value   []byte
}

// evtDeviceSeen reports a device appearing while a scan is open.
type evtDeviceSeen struct {
	device Discovered
}

func (evtAdapterPowered) isLinkEvent()   {}
func (evtDeviceConnected) isLinkEvent()  {}
func (evtServicesResolved) isLinkEvent() {}
func (evtCharValue) isLinkEvent()        {}
func (evtDeviceSeen) isLinkEvent()       {}
