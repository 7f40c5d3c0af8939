package events

// ─────────────────────────────────────────────────────────────
// Dispatcher: synchronous, typed change notifications
// ─────────────────────────────────────────────────────────────

// Topic names a kind of change notification.
type Topic string

const (
	ElementAdded     Topic = "element:added"
	ElementUpdated   Topic = "element:updated"
	ElementRemoved   Topic = "element:removed"
	OrderChanged     Topic = "element:order-changed"
	SelectionChanged Topic = "selection:changed"
	ViewportChanged  Topic = "viewport:changed"
	StateReplaced    Topic = "state:replaced"
	AnalysisApplied  Topic = "analysis:applied"
)

// Event is a single notification. IDs lists the elements it concerns;
// it is empty for whole-state topics.
type Event struct {
	Topic Topic
	IDs   []string
}

// Listener receives events. It runs on the emitter's goroutine before Emit returns.
type Listener func(Event)

type subscription struct {
	id    int
	topic Topic // empty matches every topic
	fn    Listener
}

// Dispatcher delivers events to listeners in subscription order.
// It is not safe for concurrent use; its owner serialises access.
type Dispatcher struct {
	subs   []subscription
	nextID int
	muted  int
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers fn for one topic. The returned func removes it again.
func (d *Dispatcher) Subscribe(topic Topic, fn Listener) (unsubscribe func()) {
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscription{id: id, topic: topic, fn: fn})
	return func() { d.remove(id) }
}

// SubscribeAll registers fn for every topic.
func (d *Dispatcher) SubscribeAll(fn Listener) (unsubscribe func()) {
	return d.Subscribe("", fn)
}

func (d *Dispatcher) remove(id int) {
	for i, s := range d.subs {
		if s.id == id {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers ev to every matching listener. Listeners subscribed or
// removed during delivery take effect from the next Emit.
func (d *Dispatcher) Emit(ev Event) {
	if d.muted > 0 {
		return
	}
	subs := d.subs
	for _, s := range subs {
		if s.topic == "" || s.topic == ev.Topic {
			s.fn(ev)
		}
	}
}

// Mute suppresses delivery until the returned func is called. Calls nest.
func (d *Dispatcher) Mute() (unmute func()) {
	d.muted++
	done := false
	return func() {
		if !done {
			done = true
			d.muted--
		}
	}
}

// Len returns the number of live subscriptions.
func (d *Dispatcher) Len() int { return len(d.subs) }

// Recorder is a test-friendly listener that keeps every event it sees.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Listen(ev Event) {
	r.Events = append(r.Events, ev)
}

// Topics returns the recorded topics in order.
func (r *Recorder) Topics() []Topic {
	out := make([]Topic, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Topic
	}
	return out
}

func (r *Recorder) Reset() { r.Events = nil }
