package structures

// Queue is a FIFO container. The zero value is ready to use.
type Queue[T any] struct {
	items []T
	head  int
}

// Enqueue appends v to the back of the queue.
func (q *Queue[T]) Enqueue(v T) {
	q.items = append(q.items, v)
}

// Dequeue removes and returns the front element. ok is false on an empty queue.
func (q *Queue[T]) Dequeue() (v T, ok bool) {
	if q.head >= len(q.items) {
		return v, false
	}
	v = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++

	// compact once the consumed prefix dominates the backing array
	if q.head > 32 && q.head*2 >= len(q.items) {
		q.items = append([]T(nil), q.items[q.head:]...)
		q.head = 0
	}
	return v, true
}

// Front returns the front element without removing it.
func (q *Queue[T]) Front() (v T, ok bool) {
	if q.head >= len(q.items) {
		return v, false
	}
	return q.items[q.head], true
}

func (q *Queue[T]) Len() int { return len(q.items) - q.head }

func (q *Queue[T]) IsEmpty() bool { return q.Len() == 0 }

// Items returns a copy of the pending elements, front first.
func (q *Queue[T]) Items() []T {
	return append([]T(nil), q.items[q.head:]...)
}
