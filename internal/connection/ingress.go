// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/livegrid/internal/models"
	"github.com/tomtom215/livegrid/internal/validation"
)

var (
	// ErrMalformedMessage wraps every decode or validation failure.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrIgnoredMessage marks well-formed control messages that carry no update.
	ErrIgnoredMessage = errors.New("control message ignored")
)

// ParseMessage decodes one raw transport message into a validated
// RowUpdate. A missing timestamp is set to now in epoch milliseconds.
func ParseMessage(data []byte, now time.Time) (models.RowUpdate, error) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.RowUpdate{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	payload := data
	switch env.Type {
	case "":
		// bare RowUpdate
	case models.MsgRowUpdate:
		if len(env.Data) == 0 {
			return models.RowUpdate{}, fmt.Errorf("%w: row_update without data", ErrMalformedMessage)
		}
		payload = env.Data
	case models.MsgPong, models.MsgSubscribed, models.MsgPing:
		return models.RowUpdate{}, ErrIgnoredMessage
	default:
		return models.RowUpdate{}, fmt.Errorf("%w: unknown message type %q", ErrMalformedMessage, env.Type)
	}

	var u models.RowUpdate
	if err := json.Unmarshal(payload, &u); err != nil {
		return models.RowUpdate{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if u.Timestamp == 0 {
		u.Timestamp = now.UnixMilli()
	}
	if verr := validation.ValidateStruct(&u); verr != nil {
		return models.RowUpdate{}, fmt.Errorf("%w: %s", ErrMalformedMessage, verr.Error())
	}
	return u, nil
}
