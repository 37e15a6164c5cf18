package app

import (
	"sync"
	"time"

	"github.com/yourusername/tubequeue/internal/domain"
)

const logBufferSize = 200

// EventLoop is the single consumer of the event bus. It polls on a
// fixed interval, drains whatever is pending without ever blocking,
// applies the events to consumer-owned state and fans them out to
// subscribers (the websocket feed). Deferred dialog actions run here
// and nowhere else.
type EventLoop struct {
	bus      *EventBus
	queue    *QueueManager
	interval time.Duration

	mu          sync.Mutex
	subscribers map[int64]chan domain.Event
	nextSub     int64
	logLines    []string
	running     bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewEventLoop creates a loop polling at the given interval
func NewEventLoop(bus *EventBus, queue *QueueManager, interval time.Duration) *EventLoop {
	return &EventLoop{
		bus:         bus,
		queue:       queue,
		interval:    interval,
		subscribers: make(map[int64]chan domain.Event),
		done:        make(chan struct{}),
	}
}

// Start launches the poll loop
func (el *EventLoop) Start() {
	el.mu.Lock()
	if el.running {
		el.mu.Unlock()
		return
	}
	el.running = true
	el.mu.Unlock()

	el.wg.Add(1)
	go el.run()
}

// Stop halts polling after one final drain
func (el *EventLoop) Stop() {
	el.mu.Lock()
	if !el.running {
		el.mu.Unlock()
		return
	}
	el.running = false
	el.mu.Unlock()

	close(el.done)
	el.wg.Wait()
}

func (el *EventLoop) run() {
	defer el.wg.Done()

	ticker := time.NewTicker(el.interval)
	defer ticker.Stop()

	for {
		select {
		case <-el.done:
			el.Poll()
			return
		case <-ticker.C:
			el.Poll()
		}
	}
}

// Poll drains and applies all currently pending events. One pass,
// never blocking on an empty bus.
func (el *EventLoop) Poll() {
	for _, ev := range el.bus.Drain() {
		el.apply(ev)
		el.fanout(ev)
	}
}

func (el *EventLoop) apply(ev domain.Event) {
	switch ev.Type {
	case domain.EventItemUpdate:
		el.queue.ApplyMetadata(ev.ItemID, ev.Title, ev.ThumbnailURL)
	case domain.EventDialogRequest:
		if ev.Dialog != nil {
			ev.Dialog()
		}
	case domain.EventLog:
		el.appendLog(ev.Message)
	}
}

func (el *EventLoop) appendLog(line string) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.logLines = append(el.logLines, line)
	if len(el.logLines) > logBufferSize {
		el.logLines = el.logLines[len(el.logLines)-logBufferSize:]
	}
}

// RecentLogs returns up to limit of the newest log lines, oldest first
func (el *EventLoop) RecentLogs(limit int) []string {
	el.mu.Lock()
	defer el.mu.Unlock()
	lines := el.logLines
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

// Subscribe registers a fan-out channel. Slow subscribers lose events
// rather than stalling the loop.
func (el *EventLoop) Subscribe() (int64, <-chan domain.Event) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.nextSub++
	ch := make(chan domain.Event, 64)
	el.subscribers[el.nextSub] = ch
	return el.nextSub, ch
}

// Unsubscribe removes a subscriber and closes its channel
func (el *EventLoop) Unsubscribe(id int64) {
	el.mu.Lock()
	defer el.mu.Unlock()
	if ch, ok := el.subscribers[id]; ok {
		delete(el.subscribers, id)
		close(ch)
	}
}

func (el *EventLoop) fanout(ev domain.Event) {
	el.mu.Lock()
	defer el.mu.Unlock()
	for _, ch := range el.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
