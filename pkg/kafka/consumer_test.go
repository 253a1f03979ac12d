package kafka

import (
	"context"
	"testing"
	"time"
)

type noopHandler struct {
	topic string
}

func (h noopHandler) Topic() string {
	return h.topic
}

func (h noopHandler) Handle(context.Context, []byte) error {
	return nil
}

func TestConsumerStopClosesQueueAfterReaders(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"127.0.0.1:1"}))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	c.RegisterHandler(noopHandler{topic: "ticks"})

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// the queue closes only after every read loop has exited its send select
	if _, ok := <-c.msgChan; ok {
		t.Fatalf("message arrived after shutdown")
	}
}

func TestConsumerStopIsIdempotent(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"127.0.0.1:1"}))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	c.RegisterHandler(noopHandler{topic: "news"})

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
