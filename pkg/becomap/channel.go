package becomap

import (
	"context"
	"sync"
)

// Channel is the bidirectional message transport between a MapView and
// the map engine. Implementations must close the Receive channel when
// the transport dies; Err reports why, nil meaning a clean close.
type Channel interface {
	Send(ctx context.Context, msg Message) error
	Receive() <-chan Message
	Close() error
	Err() error
}

const pipeBuffer = 32

// PipeChannel is an in-process Channel endpoint. Pipe returns two
// connected endpoints; whatever one sends the other receives. Used for
// tests and for embedding an engine in the same process.
type PipeChannel struct {
	in   chan Message
	out  chan Message
	recv chan Message

	done chan struct{}
	once *sync.Once
}

// Pipe creates a connected pair of in-process channels.
func Pipe() (*PipeChannel, *PipeChannel) {
	ab := make(chan Message, pipeBuffer)
	ba := make(chan Message, pipeBuffer)
	done := make(chan struct{})
	once := &sync.Once{}

	a := &PipeChannel{in: ba, out: ab, recv: make(chan Message, pipeBuffer), done: done, once: once}
	b := &PipeChannel{in: ab, out: ba, recv: make(chan Message, pipeBuffer), done: done, once: once}
	go a.pump()
	go b.pump()
	return a, b
}

func (p *PipeChannel) pump() {
	defer close(p.recv)
	for {
		select {
		case msg := <-p.in:
			select {
			case p.recv <- msg:
			case <-p.done:
				return
			}
		case <-p.done:
			return
		}
	}
}

// Send delivers a message to the other endpoint.
func (p *PipeChannel) Send(ctx context.Context, msg Message) error {
	if len(msg.Payload) > MaxMessageBytes {
		return New(CodePayloadTooLarge, "payload exceeds message limit")
	}
	select {
	case <-p.done:
		return New(CodeChannelUnavailable, "channel closed")
	default:
	}
	select {
	case p.out <- msg:
		return nil
	case <-p.done:
		return New(CodeChannelUnavailable, "channel closed")
	case <-ctx.Done():
		return Wrap(CodeQueueOverflow, "send blocked", ctx.Err())
	}
}

// Receive returns the inbound message stream.
func (p *PipeChannel) Receive() <-chan Message {
	return p.recv
}

// Close tears down both endpoints.
func (p *PipeChannel) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// Err always reports nil; pipes only terminate by Close.
func (p *PipeChannel) Err() error {
	return nil
}
