package common

import "time"

// Span is a single timed unit of work. Mutators are fluent and never fail,
// late calls on a finished span are dropped silently.
type Span interface {
	Context() SpanContext
	SetTag(key, value string) Span
	RemoveTag(key string) Span
	SetData(key string, value interface{}) Span
	RemoveData(key string) Span
	IsFinished() bool
	Finish()
	FinishWithStatus(status SpanStatus)
	ToTraceHeader() string
}

// Transaction is the root span of a trace. It owns the lifetime of every
// child it creates and decides when the whole tree is complete.
type Transaction interface {
	Span
	Name() string
	StartChild(operation, description string) Span
	StartChildWithParentSpanID(parentSpanID SpanID, operation, description string) Span
	Done() <-chan struct{}
}

// Sink accepts a finished transaction for transport. Submission failures are
// the sink's concern, the engine never waits on them.
type Sink interface {
	Submit(record *TransactionRecord)
}

type SpanRecord struct {
	TraceID      string                 `json:"trace_id"`
	SpanID       string                 `json:"span_id"`
	ParentSpanID string                 `json:"parent_span_id,omitempty"`
	Operation    string                 `json:"operation"`
	Description  string                 `json:"description,omitempty"`
	Status       SpanStatus             `json:"status"`
	StartTime    time.Time              `json:"start_time"`
	EndTime      time.Time              `json:"end_time"`
	Tags         map[string]string      `json:"tags,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

func (sr SpanRecord) Duration() time.Duration {
	return sr.EndTime.Sub(sr.StartTime)
}

// TransactionRecord is the flattened form of a completed transaction: the
// root span plus its children in registration order.
type TransactionRecord struct {
	EventID string       `json:"event_id"`
	Name    string       `json:"name"`
	Root    SpanRecord   `json:"transaction"`
	Spans   []SpanRecord `json:"spans"`
}
