package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversOnlyToSubscribersOfTheSameTopic(t *testing.T) {
	h := NewHub()
	stop := make(chan struct{})
	go h.Run(stop)
	defer close(stop)

	jobsCh := make(chan Event, 4)
	otherCh := make(chan Event, 4)
	h.Subscribe(jobsCh, TopicJobs)
	h.Subscribe(otherCh, "job:other")
	defer h.Unsubscribe(jobsCh, TopicJobs)
	defer h.Unsubscribe(otherCh, "job:other")

	h.Publish(Event{Topic: TopicJobs, Kind: "task.completed", Data: TaskEvent{JobID: "job-1", TaskID: "task-1"}})

	select {
	case ev := <-jobsCh:
		require.Equal(t, "task.completed", ev.Kind)
		require.Equal(t, TaskEvent{JobID: "job-1", TaskID: "task-1"}, ev.Data)
	case <-time.After(time.Second):
		t.Fatal("subscriber never received its topic's event")
	}

	select {
	case ev := <-otherCh:
		t.Fatalf("unexpected event on unrelated topic: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsFurtherDelivery(t *testing.T) {
	h := NewHub()
	stop := make(chan struct{})
	go h.Run(stop)
	defer close(stop)

	ch := make(chan Event, 4)
	h.Subscribe(ch, TopicJobs)
	h.Unsubscribe(ch, TopicJobs)

	h.Publish(Event{Topic: TopicJobs, Kind: "task.completed"})

	select {
	case ev := <-ch:
		t.Fatalf("unsubscribed channel received an event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishNeverBlocksASlowSubscriber(t *testing.T) {
	h := NewHub()
	stop := make(chan struct{})
	go h.Run(stop)
	defer close(stop)

	slow := make(chan Event) // never read from
	h.Subscribe(slow, TopicJobs)
	defer h.Unsubscribe(slow, TopicJobs)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			h.Publish(Event{Topic: TopicJobs, Kind: "task.completed"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber that never drains")
	}
}
