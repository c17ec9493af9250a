// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

/*
Package bus provides the typed in-process event bus connecting the daemon's
components.

The link manager publishes connection and orientation events, the remote
gateway publishes reachability edges, and the tracking engine publishes
session lifecycle events. Consumers subscribe per topic and decode payloads
into the concrete event types defined here.

# Transport

The bus wraps a Watermill GoChannel Pub/Sub. Messages are delivered to every
subscriber of a topic, and within a topic delivery order equals publish
order. Nothing is persisted, a subscriber only sees events published after it
subscribed.

# Topics

Each event type has its own topic:

	link.connected        ConnectedEvent
	link.disconnected     DisconnectedEvent
	link.orientation      OrientationEvent
	link.battery          BatteryEvent
	remote.reachability   ReachabilityEvent
	tracking.session      SessionEvent
	tracking.buffer       BufferDepthEvent
	notify.request        NotifyRequestEvent

# Consumers

Long-lived consumers run under the Router, which adds panic recovery and
retry with exponential backoff around every handler:

	router, _ := bus.NewRouter(nil, logger)
	router.AddConsumerHandler("tracker-orientation", bus.TopicOrientation, b.Subscriber(),
	    func(msg *message.Message) error {
	        event, err := bus.Decode[bus.OrientationEvent](msg)
	        if err != nil {
	            return err
	        }
	        return engine.HandleOrientation(event)
	    })
	go router.Run(ctx)

Handlers on one subscription process messages one at a time, so a consumer
never observes events out of order.
*/
package bus
