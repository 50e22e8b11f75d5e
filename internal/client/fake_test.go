package client

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Presence/internal/domain"
)

var errTransportClosed = errors.New("transport closed")

type fakeTransport struct {
	incoming chan []byte
	closed   chan struct{}
	once     sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{incoming: make(chan []byte, 16), closed: make(chan struct{})}
}

func (t *fakeTransport) Read() ([]byte, error) {
	select {
	case b := <-t.incoming:
		return b, nil
	case <-t.closed:
		return nil, errTransportClosed
	}
}

func (t *fakeTransport) Write(b []byte) error {
	select {
	case <-t.closed:
		return errTransportClosed
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, append([]byte(nil), b...))
	return nil
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) frames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.written))
	for i, b := range t.written {
		out[i] = string(b)
	}
	return out
}

// fakeDialer hands out queued results in order, then keeps failing with err.
type fakeDialer struct {
	mu    sync.Mutex
	queue []dialResult
	err   error
	dials int
}

type dialResult struct {
	t   Transport
	err error
}

func (d *fakeDialer) push(r ...dialResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, r...)
}

func (d *fakeDialer) Dial(ctx context.Context, credential string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.queue) > 0 {
		r := d.queue[0]
		d.queue = d.queue[1:]
		return r.t, r.err
	}
	if d.err != nil {
		return nil, d.err
	}
	return nil, errors.New("connection refused")
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// recorder collects status and reconnected events in arrival order.
type recorder struct {
	mu     sync.Mutex
	status []domain.ConnectionStatus
	recon  []domain.Reconnected
}

func record(c *Controller) *recorder {
	r := &recorder{}
	Handle(c.Bus(), func(s domain.ConnectionStatus) {
		r.mu.Lock()
		r.status = append(r.status, s)
		r.mu.Unlock()
	})
	Handle(c.Bus(), func(e domain.Reconnected) {
		r.mu.Lock()
		r.recon = append(r.recon, e)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.status))
	for _, s := range r.status {
		if s.Connected {
			out = append(out, "connected")
			continue
		}
		out = append(out, s.Reason)
	}
	return out
}

func (r *recorder) reconnects() []domain.Reconnected {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Reconnected(nil), r.recon...)
}
