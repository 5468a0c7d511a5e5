package logger

// RingBuffer keeps the most recent lines up to a fixed capacity.
type RingBuffer struct {
	lines    []string
	capacity int
	head     int // next write position
	size     int
	written  int // lines added since the last Compact
}

// NewRingBuffer creates a ring buffer holding at most capacity lines.
// A capacity below one is raised to one.
func NewRingBuffer(capacity int) *RingBuffer {
	capacity = max(capacity, 1)

	return &RingBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Add appends a line, overwriting the oldest one when full.
func (rb *RingBuffer) Add(line string) {
	rb.lines[rb.head] = line
	rb.head = (rb.head + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}

	rb.written++
}

// Len returns the number of lines held.
func (rb *RingBuffer) Len() int {
	return rb.size
}

// Cap returns the capacity.
func (rb *RingBuffer) Cap() int {
	return rb.capacity
}

// Written returns the number of lines added since the last Compact.
func (rb *RingBuffer) Written() int {
	return rb.written
}

// Compact marks the held lines as the new baseline for Written.
func (rb *RingBuffer) Compact() {
	rb.written = rb.size
}

// Lines returns the held lines, oldest first.
func (rb *RingBuffer) Lines() []string {
	if rb.size == 0 {
		return nil
	}

	result := make([]string, rb.size)
	start := (rb.head - rb.size + rb.capacity) % rb.capacity

	for i := range rb.size {
		result[i] = rb.lines[(start+i)%rb.capacity]
	}

	return result
}
