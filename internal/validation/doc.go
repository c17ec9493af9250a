// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

// Package validation wraps go-playground/validator v10 behind a singleton
// with error translation matching the control API's VALIDATION_ERROR
// envelope.
//
// The control API's request surface is small, so only built-in validators
// are registered. The ones in use:
//
//   - required: pairing needs an address
//   - mac: die addresses are colon-separated Bluetooth MACs, which the
//     built-in mac validator (net.ParseMAC) accepts
//   - min, max: history limits and name lengths
//   - omitempty: optional fields skip remaining validators when empty
//
// Usage:
//
//	type pairRequest struct {
//	    Address string `json:"address" validate:"required,mac"`
//	    Name    string `json:"name" validate:"omitempty,max=64"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    // respond 400 with apiErr.Code, apiErr.Message, apiErr.Details
//	}
//
// ValidateStruct is safe for concurrent use; the validator caches struct
// metadata internally.
package validation
