package wire

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// MaxParts limits the amount of parts of a single message.
const MaxParts = 4096

// Assembler puts messages which were split with Chunks back together.
// Incomplete messages are dropped once they haven't received a part for
// longer than the configured ttl.
type Assembler struct {
	sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]*partial
}

type partial struct {
	parts    [][]byte
	received int
	seen     time.Time
}

// NewAssembler returns an Assembler which drops incomplete messages
// after ttl.
func NewAssembler(ttl time.Duration) *Assembler {
	return &Assembler{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]*partial),
	}
}

// Add stores part (zero based) of the message id which consists of parts
// parts. Once all parts have been received, the joined data is returned
// and ok is true. Messages with parts <= 1 are returned immediately.
func (a *Assembler) Add(id string, part, parts uint32, data []byte) (res []byte, ok bool, err error) {
	if parts <= 1 {
		return data, true, nil
	}

	a.Lock()
	defer a.Unlock()

	now := a.now()
	a.prune(now)

	if parts > MaxParts {
		return nil, false, fmt.Errorf("message %s: %d parts exceed the limit of %d", id, parts, MaxParts)
	}
	if part >= parts {
		return nil, false, fmt.Errorf("message %s: part %d out of range (%d parts)", id, part, parts)
	}

	p, exists := a.pending[id]
	if !exists {
		p = &partial{parts: make([][]byte, parts)}
		a.pending[id] = p
	}
	if len(p.parts) != int(parts) {
		delete(a.pending, id)
		return nil, false, fmt.Errorf("message %s: inconsistent part count %d (expected %d)",
			id, parts, len(p.parts))
	}

	if p.parts[part] == nil {
		p.received++
	}
	p.parts[part] = append([]byte{}, data...)
	p.seen = now

	if p.received < len(p.parts) {
		return nil, false, nil
	}

	delete(a.pending, id)
	return bytes.Join(p.parts, nil), true, nil
}

// Pending returns the amount of incomplete messages.
func (a *Assembler) Pending() int {
	a.Lock()
	defer a.Unlock()
	return len(a.pending)
}

// prune drops the incomplete messages which expired. Must be called with
// the lock held.
func (a *Assembler) prune(now time.Time) {
	if a.ttl <= 0 {
		return
	}
	for id, p := range a.pending {
		if now.Sub(p.seen) > a.ttl {
			delete(a.pending, id)
		}
	}
}
