package depthai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueueOverwritesOldest(t *testing.T) {

	q := NewQueue(StreamPreview, 1, false)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := q.Send(ctx, &ImgFrame{Seq: i}); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	stats := q.Stats()

	if stats.Sent != 3 || stats.Dropped != 2 || stats.Buffered != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	msgs := q.TryGetAll()

	if len(msgs) != 1 || msgs[0].SequenceNum() != 3 {
		t.Fatalf("expected only newest frame seq 3, got %v", msgs)
	}

	if got := q.TryGetAll(); got != nil {
		t.Errorf("expected queue drained, got %d messages", len(got))
	}
}

func TestLatestPicksNewestOfType(t *testing.T) {

	q := NewQueue("mixed", 4, false)
	ctx := context.Background()

	_ = q.Send(ctx, &ImgFrame{Seq: 1})
	_ = q.Send(ctx, &ImgFrame{Seq: 2})
	_ = q.Send(ctx, &NNData{Seq: 3})

	frame, ok := Latest[*ImgFrame](q)

	if !ok {
		t.Fatal("expected a frame")
	}

	if frame.Seq != 2 {
		t.Errorf("expected newest frame seq 2, got %d", frame.Seq)
	}

	// everything was drained, including the NNData
	if _, ok := Latest[*NNData](q); ok {
		t.Error("expected queue to be empty after Latest")
	}
}

func TestLatestEmptyAndNil(t *testing.T) {

	if _, ok := Latest[*ImgFrame](nil); ok {
		t.Error("nil queue returned a message")
	}

	q := NewQueue(StreamDepth, 1, false)

	if _, ok := Latest[*ImgFrame](q); ok {
		t.Error("empty queue returned a message")
	}
}

func TestQueueGetTimeout(t *testing.T) {

	q := NewQueue(StreamStage2Out, 1, true)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Get(ctx)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestQueueGetWakesOnSend(t *testing.T) {

	q := NewQueue(StreamStage2Out, 1, true)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = q.Send(context.Background(), &NNData{Seq: 7})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msg, err := q.Get(ctx)

	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if msg.SequenceNum() != 7 {
		t.Errorf("expected seq 7, got %d", msg.SequenceNum())
	}
}

func TestQueueBlockingSendWaitsForSpace(t *testing.T) {

	q := NewQueue(StreamStage2In, 1, true)
	ctx := context.Background()

	if err := q.Send(ctx, &Buffer{Seq: 1}); err != nil {
		t.Fatal(err)
	}

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if err := q.Send(tctx, &Buffer{Seq: 2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected blocking send to time out, got %v", err)
	}

	if _, err := q.Get(ctx); err != nil {
		t.Fatal(err)
	}

	if err := q.Send(ctx, &Buffer{Seq: 3}); err != nil {
		t.Errorf("send after read failed: %v", err)
	}

	if q.Stats().Dropped != 0 {
		t.Error("blocking queue must not drop messages")
	}
}

func TestQueueClose(t *testing.T) {

	q := NewQueue(StreamStage2Out, 1, true)

	done := make(chan error, 1)

	go func() {
		_, err := q.Get(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueClosed) {
			t.Errorf("expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Get was not released by Close")
	}

	if err := q.Send(context.Background(), &NNData{}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected send on closed queue to fail, got %v", err)
	}
}
