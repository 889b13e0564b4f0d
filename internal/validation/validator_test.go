// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type subscribeRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=500,dive,symbol"`
}

type connectRequest struct {
	URL string `json:"url" validate:"omitempty,streamurl"`
}

type updateRequest struct {
	RowID     string                 `json:"rowId" validate:"required"`
	Updates   map[string]interface{} `json:"updates" validate:"required,min=1"`
	Timestamp int64                  `json:"timestamp" validate:"gte=0"`
	Internal  string                 `json:"-"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantErr   bool
		wantField string
		wantTag   string
	}{
		{
			name:  "valid subscribe",
			input: &subscribeRequest{Symbols: []string{"SYM000", "BTC-USD", "fx:EURUSD"}},
		},
		{
			name:      "empty symbols",
			input:     &subscribeRequest{Symbols: []string{}},
			wantErr:   true,
			wantField: "symbols",
			wantTag:   "min",
		},
		{
			name:      "bad symbol",
			input:     &subscribeRequest{Symbols: []string{"ok", "has space"}},
			wantErr:   true,
			wantField: "symbols[1]",
			wantTag:   "symbol",
		},
		{
			name:  "connect without url",
			input: &connectRequest{},
		},
		{
			name:  "connect with wss",
			input: &connectRequest{URL: "wss://feed.example.com/stream"},
		},
		{
			name:      "connect with http",
			input:     &connectRequest{URL: "http://feed.example.com"},
			wantErr:   true,
			wantField: "url",
			wantTag:   "streamurl",
		},
		{
			name:  "valid update",
			input: &updateRequest{RowID: "r1", Updates: map[string]interface{}{"price": 1.5}},
		},
		{
			name:      "update without fields",
			input:     &updateRequest{RowID: "r1", Updates: map[string]interface{}{}},
			wantErr:   true,
			wantField: "updates",
			wantTag:   "min",
		},
		{
			name:      "update without row",
			input:     &updateRequest{Updates: map[string]interface{}{"price": 1}},
			wantErr:   true,
			wantField: "rowId",
			wantTag:   "required",
		},
		{
			name:      "negative timestamp",
			input:     &updateRequest{RowID: "r1", Updates: map[string]interface{}{"a": 1}, Timestamp: -1},
			wantErr:   true,
			wantField: "timestamp",
			wantTag:   "gte",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if !tt.wantErr {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), verr)
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

func TestToAPIError(t *testing.T) {
	verr := ValidateStruct(&updateRequest{Timestamp: -5})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q", apiErr.Code)
	}
	if len(verr.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(verr.Errors()))
	}
	for _, want := range []string{"rowId is required", "updates is required", "timestamp must be greater than or equal to 0"} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("message %q missing %q", apiErr.Message, want)
		}
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields detail for multiple errors")
	}

	single := ValidateStruct(&connectRequest{URL: "ftp://x"}).ToAPIError()
	if single.Details["field"] != "url" {
		t.Errorf("single error field = %v", single.Details["field"])
	}
}

func TestIsSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"SYM000", true},
		{"a.b_c-d:e", true},
		{"", false},
		{"has space", false},
		{strings.Repeat("x", 64), true},
		{strings.Repeat("x", 65), false},
		{"sym/1", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsSymbol(tt.in); got != tt.want {
				t.Errorf("IsSymbol(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsStreamURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ws://localhost:8081/ws", true},
		{"wss://feed.example.com", true},
		{"nats://127.0.0.1:4222", true},
		{"http://localhost", false},
		{"ws://", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsStreamURL(tt.in); got != tt.want {
				t.Errorf("IsStreamURL(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
