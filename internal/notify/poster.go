// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/nollvik/sidetrackd/internal/bus"
	"github.com/nollvik/sidetrackd/internal/logging"
)

const (
	notifyBusName    = "org.freedesktop.Notifications"
	notifyObjectPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyIface      = "org.freedesktop.Notifications"
)

// Notification is one desktop notification to deliver.
type Notification struct {
	Summary string
	Body    string
	Urgency string
}

// Poster delivers a single notification.
type Poster interface {
	Post(ctx context.Context, n Notification) error
}

// DBusPoster posts through org.freedesktop.Notifications on the session bus.
type DBusPoster struct {
	conn    *dbus.Conn
	appName string
}

// NewDBusPoster connects to the session bus and probes for a notification
// daemon. The probe call also triggers D-Bus activation of a daemon that is
// installed but not yet running.
func NewDBusPoster(appName string) (*DBusPoster, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}

	var name, vendor, version, specVersion string
	obj := conn.Object(notifyBusName, notifyObjectPath)
	if err := obj.Call(notifyIface+".GetServerInformation", 0).Store(&name, &vendor, &version, &specVersion); err != nil {
		return nil, fmt.Errorf("no notification daemon on the session bus: %w", err)
	}

	logging.Debug().
		Str("server", name).
		Str("vendor", vendor).
		Str("version", version).
		Msg("Notification daemon found")

	return &DBusPoster{conn: conn, appName: appName}, nil
}

// Post delivers one notification. Critical notifications stay on screen
// until dismissed, the rest use the server default timeout.
func (p *DBusPoster) Post(ctx context.Context, n Notification) error {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(urgencyByte(n.Urgency)),
	}
	expire := int32(-1)
	if n.Urgency == bus.UrgencyCritical {
		expire = 0
	}

	obj := p.conn.Object(notifyBusName, notifyObjectPath)
	var id uint32
	call := obj.CallWithContext(ctx, notifyIface+".Notify", 0,
		p.appName, uint32(0), "", n.Summary, n.Body, []string{}, hints, expire)
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	return nil
}

// Close releases the session bus connection.
func (p *DBusPoster) Close() error {
	return p.conn.Close()
}

func urgencyByte(urgency string) byte {
	switch urgency {
	case bus.UrgencyLow:
		return 0
	case bus.UrgencyCritical:
		return 2
	default:
		return 1
	}
}

// LogPoster writes notifications to the daemon log. Used when no session
// bus is available or desktop notifications are turned off.
type LogPoster struct{}

// Post logs the notification, at warn level when critical.
func (LogPoster) Post(_ context.Context, n Notification) error {
	evt := logging.Info()
	if n.Urgency == bus.UrgencyCritical {
		evt = logging.Warn()
	}
	evt.Str("summary", n.Summary).
		Str("body", n.Body).
		Str("urgency", n.Urgency).
		Msg("Notification")
	return nil
}
