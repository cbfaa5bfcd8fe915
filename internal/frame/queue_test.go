package frame_test

import (
	"sync"
	"testing"

	"github.com/rolentle/toolchest/internal/frame"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := frame.NewQueue()

	blocks := make([][]float32, 10)
	for i := range blocks {
		blocks[i] = []float32{float32(i)}
		if err := q.Push(blocks[i]); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}

	for i := range blocks {
		got, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop(%d): queue unexpectedly empty", i)
		}
		if got[0] != float32(i) {
			t.Errorf("TryPop(%d) = %v, want block %d", i, got[0], i)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop on drained queue should report empty")
	}
}

func TestQueue_TryPopEmpty(t *testing.T) {
	q := frame.NewQueue()

	block, ok := q.TryPop()
	if ok || block != nil {
		t.Errorf("TryPop on empty queue = (%v, %v), want (nil, false)", block, ok)
	}
	if q.Done() {
		t.Error("open empty queue must not report Done")
	}
}

func TestQueue_PushAfterClose(t *testing.T) {
	q := frame.NewQueue()
	q.Close()

	if err := q.Push([]float32{1}); err != frame.ErrQueueClosed {
		t.Errorf("Push after Close = %v, want ErrQueueClosed", err)
	}
}

func TestQueue_Done(t *testing.T) {
	q := frame.NewQueue()

	if err := q.Push([]float32{1}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	q.Close()

	if q.Done() {
		t.Error("closed queue with pending blocks must not report Done")
	}

	if _, ok := q.TryPop(); !ok {
		t.Fatal("TryPop: expected remaining block after Close")
	}
	if !q.Done() {
		t.Error("closed and drained queue must report Done")
	}
}

func TestQueue_DrainAll(t *testing.T) {
	q := frame.NewQueue()
	for i := 0; i < 5; i++ {
		if err := q.Push([]float32{float32(i)}); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	q.Close()

	blocks := q.DrainAll()
	if len(blocks) != 5 {
		t.Fatalf("DrainAll returned %d blocks, want 5", len(blocks))
	}
	for i, b := range blocks {
		if b[0] != float32(i) {
			t.Errorf("DrainAll[%d] = %v, want %d", i, b[0], i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len after DrainAll = %d, want 0", q.Len())
	}
}

func TestQueue_HighWater(t *testing.T) {
	q := frame.NewQueue()

	for i := 0; i < 4; i++ {
		if err := q.Push([]float32{0}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	q.TryPop()
	q.TryPop()
	if err := q.Push([]float32{0}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if hw := q.HighWater(); hw != 4 {
		t.Errorf("HighWater = %d, want 4", hw)
	}
}

func TestQueue_ConcurrentProducerConsumer(t *testing.T) {
	const n = 1000
	q := frame.NewQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := q.Push([]float32{float32(i)}); err != nil {
				t.Errorf("Push(%d): %v", i, err)
				return
			}
		}
		q.Close()
	}()

	var got []float32
	for {
		block, ok := q.TryPop()
		if ok {
			got = append(got, block[0])
			continue
		}
		if q.Done() {
			break
		}
	}
	wg.Wait()

	if len(got) != n {
		t.Fatalf("consumed %d blocks, want %d", len(got), n)
	}
	for i, v := range got {
		if v != float32(i) {
			t.Fatalf("block %d out of order: got %v", i, v)
		}
	}
}
