// Sidetrackd - BLE Tracking Die Daemon
// Copyright 2026 N. Ollvik (nollvik)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nollvik/sidetrackd

package validation

import (
	"strings"
	"testing"
)

func TestGetValidatorSingleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

// pairForm mirrors the pairing request the control API validates.
type pairForm struct {
	Address string `validate:"required,mac"`
	Name    string `validate:"omitempty,max=64"`
}

// queryForm mirrors the history query parameters.
type queryForm struct {
	Limit int `validate:"min=1,max=1000"`
}

func TestValidateStructValid(t *testing.T) {
	tests := []struct {
		name  string
		input pairForm
	}{
		{
			name:  "address with name",
			input: pairForm{Address: "D0:3E:7D:12:34:56", Name: "Sidetrack Die"},
		},
		{
			name:  "address alone",
			input: pairForm{Address: "00:11:22:33:44:55"},
		},
		{
			name:  "lowercase address",
			input: pairForm{Address: "d0:3e:7d:12:34:56"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(&tt.input); err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStructInvalid(t *testing.T) {
	tests := []struct {
		name      string
		input     pairForm
		wantField string
		wantTag   string
	}{
		{
			name:      "missing address",
			input:     pairForm{Name: "Sidetrack Die"},
			wantField: "Address",
			wantTag:   "required",
		},
		{
			name:      "malformed address",
			input:     pairForm{Address: "not-a-mac"},
			wantField: "Address",
			wantTag:   "mac",
		},
		{
			name:      "name too long",
			input:     pairForm{Address: "D0:3E:7D:12:34:56", Name: strings.Repeat("x", 65)},
			wantField: "Name",
			wantTag:   "max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("ValidateStruct() should have failed")
			}

			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("field = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("tag = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestValidateStructLimits(t *testing.T) {
	if err := ValidateStruct(&queryForm{Limit: 1}); err != nil {
		t.Errorf("limit 1 should pass: %v", err)
	}
	if err := ValidateStruct(&queryForm{Limit: 1000}); err != nil {
		t.Errorf("limit 1000 should pass: %v", err)
	}
	if err := ValidateStruct(&queryForm{Limit: 0}); err == nil {
		t.Error("limit 0 should fail")
	}
	if err := ValidateStruct(&queryForm{Limit: 1001}); err == nil {
		t.Error("limit 1001 should fail")
	}
}

func TestToAPIErrorSingleFailure(t *testing.T) {
	err := ValidateStruct(&pairForm{Address: "bogus"})
	if err == nil {
		t.Fatal("expected validation failure")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message != "Address must be a valid MAC address" {
		t.Errorf("message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "Address" {
		t.Errorf("details field = %v, want Address", apiErr.Details["field"])
	}
	if apiErr.Details["tag"] != "mac" {
		t.Errorf("details tag = %v, want mac", apiErr.Details["tag"])
	}
}

func TestToAPIErrorMultipleFailures(t *testing.T) {
	err := ValidateStruct(&pairForm{Address: "", Name: strings.Repeat("x", 70)})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Address is required") {
		t.Errorf("message missing required part: %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Message, "Name must be at most 64 characters") {
		t.Errorf("message missing max part: %q", apiErr.Message)
	}

	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("details fields has wrong type: %T", apiErr.Details["fields"])
	}
	if len(fields) != 2 {
		t.Errorf("expected 2 field details, got %d", len(fields))
	}
}

func TestValidateStructNonStruct(t *testing.T) {
	err := ValidateStruct("not a struct")
	if err == nil {
		t.Fatal("expected failure for non-struct input")
	}
	if err.Error() == "" {
		t.Error("error message should not be empty")
	}
}

func TestCombinedErrorMessage(t *testing.T) {
	err := ValidateStruct(&pairForm{})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if err.Error() != "Address is required" {
		t.Errorf("Error() = %q", err.Error())
	}
}
