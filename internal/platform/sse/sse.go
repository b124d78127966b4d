// Package sse writes progress events to a text/event-stream response.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

const (
	TypeStart    = "start"
	TypeStatus   = "status"
	TypeProgress = "progress"
	TypeComplete = "complete"
	TypeError    = "error"
)

// Event is one frame of a sync stream. Data carries the type-specific payload
// of complete and report events.
type Event struct {
	Type             string      `json:"type"`
	Message          string      `json:"message,omitempty"`
	Current          int         `json:"current"`
	Total            int         `json:"total"`
	ProductName      string      `json:"product_name,omitempty"`
	Status           string      `json:"status,omitempty"`
	Quantity         *int        `json:"quantity,omitempty"`
	FallbackQuantity *int        `json:"fallback_quantity,omitempty"`
	Price            *float64    `json:"price,omitempty"`
	Data             interface{} `json:"data,omitempty"`
}

func Status(msg string, current, total int) Event {
	return Event{Type: TypeStatus, Message: msg, Current: current, Total: total}
}

func Error(msg string) Event {
	return Event{Type: TypeError, Message: msg}
}

// Emitter is the producer side of a stream. The producer owns the channel and
// closes it with Close once the run is over.
type Emitter struct {
	ch chan Event
}

func NewEmitter(buffer int) *Emitter {
	return &Emitter{ch: make(chan Event, buffer)}
}

func (e *Emitter) Emit(ev Event) { e.ch <- ev }
func (e *Emitter) Events() <-chan Event { return e.ch }
func (e *Emitter) Close() { close(e.ch) }

// Collect drains a stream into a slice. Used by one-shot jobs and tests.
func Collect(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

// Stream copies events to w until the channel is closed. Once the client is
// gone or a write fails, remaining events are still drained so the producer
// never blocks and finishes its work.
func Stream(ctx context.Context, w http.ResponseWriter, events <-chan Event, log *zap.Logger) int {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	connected := true
	sent := 0
	for ev := range events {
		if !connected {
			continue
		}
		if ctx.Err() != nil {
			log.Info("client disconnected, draining stream", zap.Int("sent", sent))
			connected = false
			continue
		}
		if err := write(w, ev); err != nil {
			log.Warn("stream write failed, draining", zap.Error(err))
			connected = false
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
		sent++
	}
	return sent
}

func write(w http.ResponseWriter, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
