// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

//go:build nats

package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

// natsInboxSize bounds messages buffered between the NATS client and the
// manager's reader.
const natsInboxSize = 4096

// NATSTransport subscribes to per-symbol subjects "<prefix>.<symbol>".
// The wildcard symbol maps to "<prefix>.>".
type NATSTransport struct {
	SubjectPrefix string
	Name          string
}

// NewNATSTransport creates a NATS transport for subjects under prefix.
func NewNATSTransport(prefix string) (Transport, error) {
	if prefix == "" {
		prefix = "livegrid.rows"
	}
	return &NATSTransport{SubjectPrefix: prefix, Name: "livegrid-viewer"}, nil
}

// Dial implements Transport. Reconnects are left to the Manager, so the
// client is created with reconnects disabled.
func (t *NATSTransport) Dial(ctx context.Context, url string) (Conn, error) {
	timeout := 10 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}

	c := &natsConn{
		prefix: t.SubjectPrefix,
		inbox:  make(chan []byte, natsInboxSize),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
		subs:   make(map[string]*nats.Subscription),
	}

	nc, err := nats.Connect(url,
		nats.Name(t.Name),
		nats.Timeout(timeout),
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				err = nats.ErrConnectionClosed
			}
			c.fail(err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.fail(nats.ErrConnectionClosed)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	c.nc = nc
	return c, nil
}

type natsConn struct {
	nc     *nats.Conn
	prefix string
	inbox  chan []byte
	errs   chan error
	done   chan struct{}

	mu   sync.Mutex
	subs map[string]*nats.Subscription

	closeOnce sync.Once
}

func (c *natsConn) fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

func (c *natsConn) subject(symbol string) string {
	if symbol == models.WildcardSymbol {
		return c.prefix + ".>"
	}
	return c.prefix + "." + symbol
}

// ReadMessage implements Conn.
func (c *natsConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbox:
		return data, nil
	case err := <-c.errs:
		return nil, err
	case <-c.done:
		return nil, ErrNotConnected
	}
}

// SetInterest implements Conn.
func (c *natsConn) SetInterest(subscribe bool, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sym := range symbols {
		subject := c.subject(sym)
		if !subscribe {
			if sub, ok := c.subs[subject]; ok {
				if err := sub.Unsubscribe(); err != nil {
					return fmt.Errorf("unsubscribe %s: %w", subject, err)
				}
				delete(c.subs, subject)
			}
			continue
		}
		if _, ok := c.subs[subject]; ok {
			continue
		}
		sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
			select {
			case c.inbox <- msg.Data:
			default:
				metrics.ConnectionErrors.WithLabelValues("inbox_full").Inc()
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		c.subs[subject] = sub
	}
	return c.nc.Flush()
}

// Close implements Conn.
func (c *natsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.nc.Close()
	})
	return nil
}
