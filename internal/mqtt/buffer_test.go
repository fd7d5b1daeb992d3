package mqtt

import (
	"testing"
)

func payloads(msgs []pending) []byte {
	out := make([]byte, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutboxFlushEmpty(t *testing.T) {
	o := newOutbox(4, nil)
	msgs, dropped := o.flush()
	if msgs != nil || dropped != 0 {
		t.Errorf("empty flush: got %d messages, %d dropped", len(msgs), dropped)
	}
}

func TestOutboxKeepsNewest(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		added   int
		want    []byte
		dropped int
	}{
		{"under capacity", 4, 3, []byte{0, 1, 2}, 0},
		{"exactly full", 4, 4, []byte{0, 1, 2, 3}, 0},
		{"overflow by one", 4, 5, []byte{1, 2, 3, 4}, 1},
		{"wrapped twice", 3, 8, []byte{5, 6, 7}, 5},
		{"zero size holds one", 0, 3, []byte{2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOutbox(tt.size, nil)
			for i := 0; i < tt.added; i++ {
				o.add(pending{topic: TopicEvents, payload: []byte{byte(i)}})
			}
			msgs, dropped := o.flush()
			if got := payloads(msgs); string(got) != string(tt.want) {
				t.Errorf("payloads: got %v, want %v", got, tt.want)
			}
			if dropped != tt.dropped {
				t.Errorf("dropped: got %d, want %d", dropped, tt.dropped)
			}
		})
	}
}

func TestOutboxFlushResets(t *testing.T) {
	o := newOutbox(2, nil)
	for i := 0; i < 5; i++ {
		o.add(pending{payload: []byte{byte(i)}})
	}
	o.flush()
	if o.size() != 0 {
		t.Fatalf("size after flush: got %d, want 0", o.size())
	}

	o.add(pending{payload: []byte{9}})
	msgs, dropped := o.flush()
	if got := payloads(msgs); string(got) != string([]byte{9}) {
		t.Errorf("second round: got %v, want [9]", got)
	}
	if dropped != 0 {
		t.Errorf("drop count carried over: %d", dropped)
	}
}

func TestOutboxSize(t *testing.T) {
	o := newOutbox(3, nil)
	for i, want := range []int{1, 2, 3, 3} {
		o.add(pending{payload: []byte{byte(i)}})
		if o.size() != want {
			t.Errorf("after %d adds: size %d, want %d", i+1, o.size(), want)
		}
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(2, nil)
	o.add(pending{
		topic:    TopicSystem,
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	msgs, _ := o.flush()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.topic != TopicSystem || string(m.payload) != `{"test":true}` || m.qos != 1 || !m.retained {
		t.Errorf("fields changed: %+v", m)
	}
}
