package app

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

type fakeSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	err    error
	closed bool
}

func (f *fakeSignal) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrConnectionClosed
	}
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSignal) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSignal) messages() []core.WireMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.WireMessage, 0, len(f.frames))
	for _, fr := range f.frames {
		var m core.WireMessage
		if err := json.Unmarshal(fr, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

type joinedSet map[domain.RoomID]bool

func (j joinedSet) HasRoom(room domain.RoomID) bool { return j[room] }
