package mqtt

import "github.com/sweeney/halo-heater/internal/logger"

// pending is a serialized message waiting for the broker.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable. Once
// full it keeps the newest messages and counts what it lost.
// Not safe for concurrent use; the caller synchronises.
type outbox struct {
	slots   []pending
	first   int // oldest message
	n       int
	dropped int // lost since the last flush
	log     *logger.Logger
}

func newOutbox(size int, log *logger.Logger) *outbox {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &outbox{slots: make([]pending, size), log: log}
}

func (o *outbox) add(m pending) {
	if o.n < len(o.slots) {
		o.slots[(o.first+o.n)%len(o.slots)] = m
		o.n++
		return
	}
	if o.dropped == 0 {
		o.log.Warnw("MQTT outbox full, dropping oldest", "size", len(o.slots))
	}
	o.dropped++
	o.slots[o.first] = m
	o.first = (o.first + 1) % len(o.slots)
}

// flush empties the outbox. It returns the held messages oldest first and
// how many were dropped to make room for them.
func (o *outbox) flush() ([]pending, int) {
	var out []pending
	if o.n > 0 {
		out = make([]pending, 0, o.n)
		for i := 0; i < o.n; i++ {
			out = append(out, o.slots[(o.first+i)%len(o.slots)])
		}
	}
	dropped := o.dropped
	o.first, o.n, o.dropped = 0, 0, 0
	return out, dropped
}

func (o *outbox) size() int {
	return o.n
}
