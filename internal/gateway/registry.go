package gateway

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

type registration struct {
	ch     Channel
	sendMu sync.Mutex
}

type identityLock struct {
	mu   sync.Mutex
	refs int
}

// Registry keeps at most one live channel per client identity. Register and
// Deregister for the same identity are serialized; sends are serialized per
// registration so frames never interleave.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registration
	locks   map[string]*identityLock
	closed  bool
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*registration),
		locks:   make(map[string]*identityLock),
		logger:  logger.With("component", "registry"),
	}
}

func (r *Registry) lockIdentity(clientID string) func() {
	r.mu.Lock()
	l, ok := r.locks[clientID]
	if !ok {
		l = &identityLock{}
		r.locks[clientID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, clientID)
		}
		r.mu.Unlock()
	}
}

// Register installs ch for clientID, closing any channel it supersedes, and
// writes the connection_established handshake. Sends issued while the
// handshake is in flight queue behind it. A failed handshake leaves nothing
// registered.
func (r *Registry) Register(ctx context.Context, clientID string, ch Channel) error {
	unlock := r.lockIdentity(clientID)
	defer unlock()

	reg := &registration{ch: ch}
	reg.sendMu.Lock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		reg.sendMu.Unlock()
		return &ConnectionError{ClientID: clientID, Err: ErrRegistryClosed}
	}
	prev := r.entries[clientID]
	r.entries[clientID] = reg
	r.mu.Unlock()

	if prev != nil {
		if err := prev.ch.Close(); err != nil {
			r.logger.Debug("closing superseded channel", "client_id", clientID, "error", err)
		}
		r.logger.Info("channel superseded", "client_id", clientID)
	}

	err := ch.Send(ctx, OutboundEvent{
		Event: EventConnectionEstablished,
		Data:  ConnectionEstablishedPayload{ClientID: clientID},
	})
	reg.sendMu.Unlock()

	if err != nil {
		r.Release(clientID, ch)
		_ = ch.Close()
		return &ConnectionError{ClientID: clientID, Err: err}
	}
	return nil
}

// Deregister drops whatever channel is registered for clientID. Calling it
// for an unknown identity is a no-op.
func (r *Registry) Deregister(clientID string) {
	unlock := r.lockIdentity(clientID)
	defer unlock()

	r.mu.Lock()
	reg, ok := r.entries[clientID]
	delete(r.entries, clientID)
	r.mu.Unlock()

	if ok {
		_ = reg.ch.Close()
	}
}

// Release deregisters clientID only while ch is still its live channel and
// reports whether it did. It does not close ch.
func (r *Registry) Release(clientID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.entries[clientID]
	if !ok || reg.ch != ch {
		return false
	}
	delete(r.entries, clientID)
	return true
}

// Detach releases ch for clientID and runs teardown when the identity is left
// without a live channel, either because ch was it or because a failed write
// already dropped it. teardown runs under the identity lock so a concurrent
// Register for clientID cannot slip in before it.
func (r *Registry) Detach(clientID string, ch Channel, teardown func()) bool {
	unlock := r.lockIdentity(clientID)
	defer unlock()

	r.mu.Lock()
	reg, ok := r.entries[clientID]
	vacant := !ok || reg.ch == ch
	if ok && reg.ch == ch {
		delete(r.entries, clientID)
	}
	r.mu.Unlock()

	if vacant && teardown != nil {
		teardown()
	}
	return vacant
}

// Send writes ev to the live channel for clientID. It returns false when no
// channel is registered or the write failed, in which case the channel is
// dropped.
func (r *Registry) Send(ctx context.Context, clientID string, ev OutboundEvent) bool {
	for {
		reg := r.lookup(clientID)
		if reg == nil {
			return false
		}

		reg.sendMu.Lock()
		if r.lookup(clientID) != reg {
			reg.sendMu.Unlock()
			continue
		}
		err := reg.ch.Send(ctx, ev)
		reg.sendMu.Unlock()

		if err != nil {
			r.logger.Warn("send failed, dropping channel", "client_id", clientID, "event", ev.Event, "error", err)
			if r.Release(clientID, reg.ch) {
				_ = reg.ch.Close()
			}
			return false
		}
		return true
	}
}

func (r *Registry) lookup(clientID string) *registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[clientID]
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) Identities() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Close closes every channel and rejects later registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*registration)
	r.mu.Unlock()

	for _, reg := range entries {
		_ = reg.ch.Close()
	}
}
