package coordinator

// Task is one row's unit of work within a batch
type Task struct {
	Row    int
	Symbol string
	Pair   string
}

// Summary tallies a finished batch
type Summary struct {
	Rows        int
	Tasks       int
	Succeeded   int
	Unresolved  int
	FetchFailed int
	Dropped     int
}

// Failed returns the number of rows that produced an error event
func (s Summary) Failed() int {
	return s.Unresolved + s.FetchFailed
}

// Empty reports whether the batch was issued over an empty table
func (s Summary) Empty() bool {
	return s.Rows == 0
}

// Batch is the handle of one refresh invocation.
// Its event channel is buffered for every event the batch can produce, so the
// batch runs to completion whether or not anybody reads it.
type Batch struct {
	ID         string
	Generation uint64

	events  chan Event
	done    chan struct{}
	summary Summary
}

func newBatch(id string, generation uint64, rows int) *Batch {
	return &Batch{
		ID:         id,
		Generation: generation,
		events:     make(chan Event, rows+2),
		done:       make(chan struct{}),
		summary:    Summary{Rows: rows},
	}
}

// Events returns the batch's events in emission order. The channel is closed
// once the batch is done.
func (b *Batch) Events() <-chan Event {
	return b.events
}

// Done is closed when every task of the batch is terminal and merged
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch is done and returns its tally.
// It does not consume events.
func (b *Batch) Wait() Summary {
	<-b.done
	return b.summary
}

func (b *Batch) emit(e Event) {
	b.events <- e
}

func (b *Batch) finish() {
	close(b.events)
	close(b.done)
}
