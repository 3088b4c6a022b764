// Package events implements a topic-keyed broadcast hub used to fan out
// task/job progress to HTTP websocket subscribers (internal/httpapi) and to
// wake the Stage Graph Executor's readiness evaluator when a task
// terminates. Grounded on GoldenLandForever-V2V's pkg/sse.Hub: a single
// goroutine's select loop serializes all access to the subscriber map, so
// no locking is needed around the topic data structure itself.
package events

import "sync"

// Event is published to a topic when something in the pipeline changes.
type Event struct {
	Topic string
	Kind  string // e.g. "task.completed", "job.progress", "transition.completed"
	Data  interface{}
}

// TopicJobs is the fixed topic the Stage Graph Executor subscribes to for
// task-terminal notifications. Per-job progress streaming (internal/httpapi)
// subscribes to "job:<id>" instead, since a websocket client only cares
// about one job at a time; TopicJobs exists because the executor's single
// long-lived loop needs one topic it can subscribe to before any Job exists.
const TopicJobs = "jobs"

// TaskEvent is the Data payload of events published on TopicJobs and on a
// task's own "job:<id>" topic.
type TaskEvent struct {
	JobID  string
	TaskID string
}

type subscription struct {
	ch    chan Event
	topic string
}

// Hub manages topic-keyed subscribers and serializes mutation of the
// subscriber map through its own goroutine (Run).
type Hub struct {
	topics map[string]map[chan Event]bool

	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan Event

	mu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		topics:      make(map[string]map[chan Event]bool),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publish:     make(chan Event, 256),
	}
}

// Run processes subscribe/unsubscribe/publish operations until ctx-like
// shutdown; callers start this in its own goroutine at process startup.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case s := <-h.subscribe:
			h.mu.Lock()
			subs, ok := h.topics[s.topic]
			if !ok {
				subs = make(map[chan Event]bool)
				h.topics[s.topic] = subs
			}
			subs[s.ch] = true
			h.mu.Unlock()
		case s := <-h.unsubscribe:
			h.mu.Lock()
			if subs, ok := h.topics[s.topic]; ok {
				delete(subs, s.ch)
				if len(subs) == 0 {
					delete(h.topics, s.topic)
				}
			}
			h.mu.Unlock()
		case ev := <-h.publish:
			h.mu.Lock()
			if subs, ok := h.topics[ev.Topic]; ok {
				for ch := range subs {
					select {
					case ch <- ev:
					default:
						// drop if the subscriber isn't draining fast enough
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish broadcasts ev to every subscriber of ev.Topic.
func (h *Hub) Publish(ev Event) {
	h.publish <- ev
}

// Subscribe registers ch as a listener on topic. Callers own ch: they must
// unsubscribe and close it when done: the Hub never closes a subscriber's
// channel.
func (h *Hub) Subscribe(ch chan Event, topic string) {
	h.subscribe <- subscription{ch: ch, topic: topic}
}

func (h *Hub) Unsubscribe(ch chan Event, topic string) {
	h.unsubscribe <- subscription{ch: ch, topic: topic}
}
