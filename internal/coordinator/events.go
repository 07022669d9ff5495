package coordinator

import (
	"github.com/shopspring/decimal"
)

// EventType identifies an Event variant
type EventType string

const (
	BatchStarted   EventType = "batch_started"
	RowUpdated     EventType = "row_updated"
	RowFailed      EventType = "row_failed"
	BatchFinished  EventType = "batch_finished"
	EmptyPortfolio EventType = "empty_portfolio"
)

// Event is implemented by every value sent on a batch's event channel
type Event interface {
	// EventType returns the variant of the event
	EventType() EventType
	// BatchID returns the batch that produced the event
	BatchID() string
}

// ErrorKind tells which stage a row failed in
type ErrorKind string

const (
	// KindResolution means the symbol had no provider pair; no fetch was attempted
	KindResolution ErrorKind = "resolution"
	// KindFetch means the provider call failed
	KindFetch ErrorKind = "fetch"
)

// BatchStartedEvent is the first event of a non-empty batch
type BatchStartedEvent struct {
	Batch      string
	Generation uint64
	Rows       int
	Tasks      int
}

func (e BatchStartedEvent) EventType() EventType { return BatchStarted }
func (e BatchStartedEvent) BatchID() string      { return e.Batch }

// RowUpdateEvent reports a row priced and stored
type RowUpdateEvent struct {
	Batch      string
	Row        int
	Symbol     string
	Price      decimal.Decimal
	TotalValue decimal.Decimal
}

func (e RowUpdateEvent) EventType() EventType { return RowUpdated }
func (e RowUpdateEvent) BatchID() string      { return e.Batch }

// RowErrorEvent reports a row that could not be priced
type RowErrorEvent struct {
	Batch  string
	Row    int
	Symbol string
	// Pair is empty for resolution failures
	Pair string
	Kind ErrorKind
	Err  error
}

func (e RowErrorEvent) EventType() EventType { return RowFailed }
func (e RowErrorEvent) BatchID() string      { return e.Batch }

// Message returns the error text
func (e RowErrorEvent) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// BatchFinishedEvent is the last event of a non-empty batch.
// Failed counts resolution and fetch errors; Dropped counts results discarded
// because the table was reloaded while they were in flight.
type BatchFinishedEvent struct {
	Batch     string
	Succeeded int
	Failed    int
	Dropped   int
}

func (e BatchFinishedEvent) EventType() EventType { return BatchFinished }
func (e BatchFinishedEvent) BatchID() string      { return e.Batch }

// EmptyPortfolioEvent is the only event of a refresh over an empty table
type EmptyPortfolioEvent struct {
	Batch string
}

func (e EmptyPortfolioEvent) EventType() EventType { return EmptyPortfolio }
func (e EmptyPortfolioEvent) BatchID() string      { return e.Batch }
