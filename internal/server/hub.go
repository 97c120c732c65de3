package server

import (
	"context"
	"encoding/json"
	"sync"

	"gocv.io/x/gocv"
)

// subscriberBuffer is how many results a slow WebSocket client may lag
// before messages are dropped for it.
const subscriberBuffer = 8

// Hub holds the latest annotated frame and fans per-frame results out to
// live subscribers. The frame loop publishes; HTTP handlers only read.
type Hub struct {
	mu      sync.RWMutex
	jpeg    []byte
	seq     uint64
	changed chan struct{}
	subs    map[chan []byte]struct{}
	streams int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		changed: make(chan struct{}),
		subs:    make(map[chan []byte]struct{}),
	}
}

// PublishFrame JPEG-encodes frame and makes it the latest snapshot.
func (h *Hub) PublishFrame(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return err
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	h.PublishJPEG(jpeg)
	return nil
}

// PublishJPEG makes jpeg the latest snapshot and wakes waiting streams.
func (h *Hub) PublishJPEG(jpeg []byte) {
	h.mu.Lock()
	h.jpeg = jpeg
	h.seq++
	close(h.changed)
	h.changed = make(chan struct{})
	h.mu.Unlock()
}

// Latest returns the current snapshot and its sequence number. The slice
// must not be modified.
func (h *Hub) Latest() ([]byte, uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.jpeg, h.seq
}

// NextFrame blocks until a snapshot newer than after exists or ctx is done.
func (h *Hub) NextFrame(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		h.mu.RLock()
		jpeg, seq, changed := h.jpeg, h.seq, h.changed
		h.mu.RUnlock()

		if seq > after && jpeg != nil {
			return jpeg, seq, nil
		}

		select {
		case <-ctx.Done():
			return nil, seq, ctx.Err()
		case <-changed:
		}
	}
}

// Watch registers a stream client until the returned func is called.
func (h *Hub) Watch() func() {
	h.mu.Lock()
	h.streams++
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			h.streams--
			h.mu.Unlock()
		})
	}
}

// Watched reports whether any stream client is waiting for frames. The frame
// loop skips JPEG encoding when it is false.
func (h *Hub) Watched() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.streams > 0
}

// PublishResult marshals v to JSON and delivers it to every subscriber.
// Subscribers whose buffer is full miss the message.
func (h *Hub) PublishResult(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a result subscriber. The returned func unregisters it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
