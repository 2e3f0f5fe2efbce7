package common

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

type TransactionOptions struct {
	Name            string
	Operation       string
	Description     string
	Sampled         Sampled
	SampleRate      float64
	TraceID         TraceID
	ParentSpanID    SpanID
	WaitForChildren bool
	AutoFinishAfter time.Duration
	Clock           clockz.Clock
}

// transaction is the root span of a trace plus the coordination state that
// decides when the whole tree is complete. The transaction mutex guards the
// child collection and the finish flags; each span guards its own fields.
//
// Lock ordering: a child finish releases the span lock before notifying the
// transaction, finalization takes the transaction lock first and the span
// locks after. The two orders never hold both locks in opposite directions.
type transaction struct {
	span            traceSpan
	name            string
	sink            Sink
	logger          Logger
	clock           clockz.Clock
	waitForChildren bool
	autoFinishAfter time.Duration

	mu              sync.Mutex
	children        []*traceSpan
	finishRequested bool
	requestedStatus SpanStatus
	closed          bool
	done            chan struct{}
}

// NewTransaction applies the sampling decision and starts the root span.
// A negative decision yields the no-op transaction, so call sites can use
// the result unconditionally.
func NewTransaction(options TransactionOptions, sink Sink, logger Logger) Transaction {

	clock := options.Clock
	if clock == nil {
		clock = clockz.RealClock
	}

	sampled := options.Sampled
	if !sampled.Defined() {
		sampled = decideSampled(options.SampleRate)
	}
	if sampled == SampledFalse {
		if logger != nil {
			logger.Debug("transaction %s is not sampled", options.Name)
		}
		return noopTransaction{}
	}

	traceID := options.TraceID
	if traceID.IsZero() {
		traceID = NewTraceID()
	}

	t := &transaction{
		name:            options.Name,
		sink:            sink,
		logger:          logger,
		clock:           clock,
		waitForChildren: options.WaitForChildren,
		autoFinishAfter: options.AutoFinishAfter,
		done:            make(chan struct{}),
		span: traceSpan{
			context: SpanContext{
				TraceID:      traceID,
				SpanID:       NewSpanID(),
				ParentSpanID: options.ParentSpanID,
				Operation:    options.Operation,
				Description:  options.Description,
				Sampled:      sampled,
			},
			start: clock.Now(),
			now:   clock.Now,
		},
	}

	if t.autoFinishAfter > 0 {
		go t.autoFinish()
	}
	return t
}

// decideSampled resolves an undetermined decision against the sample rate.
// A zero rate keeps the decision undetermined, the trace is still recorded
// and downstream services may decide for themselves.
func decideSampled(rate float64) Sampled {

	if rate <= 0 {
		return SampledUndefined
	}
	if rate >= 1 {
		return SampledTrue
	}
	if float64(randomUint64())/(1<<63) < rate {
		return SampledTrue
	}
	return SampledFalse
}

func (t *transaction) Name() string {
	return t.name
}

func (t *transaction) Context() SpanContext {
	return t.span.Context()
}

func (t *transaction) SetTag(key, value string) Span {
	t.span.SetTag(key, value)
	return t
}

func (t *transaction) RemoveTag(key string) Span {
	t.span.RemoveTag(key)
	return t
}

func (t *transaction) SetData(key string, value interface{}) Span {
	t.span.SetData(key, value)
	return t
}

func (t *transaction) RemoveData(key string) Span {
	t.span.RemoveData(key)
	return t
}

func (t *transaction) IsFinished() bool {
	return t.span.IsFinished()
}

func (t *transaction) ToTraceHeader() string {
	return t.span.ToTraceHeader()
}

// Done is closed once the transaction has been finalized and handed to the
// sink. Callers that need to observe completion wait on it.
func (t *transaction) Done() <-chan struct{} {
	return t.done
}

func (t *transaction) StartChild(operation, description string) Span {
	return t.StartChildWithParentSpanID(t.span.context.SpanID, operation, description)
}

func (t *transaction) StartChildWithParentSpanID(parentSpanID SpanID, operation, description string) Span {

	t.mu.Lock()
	if t.closed || t.finishRequested {
		t.mu.Unlock()
		if t.logger != nil {
			t.logger.Debug("transaction %s is finishing, span %s is dropped", t.name, operation)
		}
		return noopSpan{}
	}

	child := &traceSpan{
		context: SpanContext{
			TraceID:      t.span.context.TraceID,
			SpanID:       NewSpanID(),
			ParentSpanID: parentSpanID,
			Operation:    operation,
			Description:  description,
			Sampled:      t.span.context.Sampled,
		},
		start:    t.clock.Now(),
		now:      t.clock.Now,
		onFinish: t.childFinished,
	}
	t.children = append(t.children, child)
	t.mu.Unlock()
	return child
}

func (t *transaction) Finish() {
	t.FinishWithStatus(StatusOK)
}

func (t *transaction) FinishWithStatus(status SpanStatus) {

	if status == StatusUnset {
		status = StatusOK
	}

	t.mu.Lock()
	if t.closed || t.finishRequested {
		t.mu.Unlock()
		return
	}

	if t.waitForChildren && t.pendingLocked() > 0 {
		// Defer completion, the last child finish notification picks the
		// requested status up again.
		t.finishRequested = true
		t.requestedStatus = status
		t.mu.Unlock()
		return
	}

	t.finalizeLocked(status)
}

// childFinished re-evaluates completion every time a child finishes.
func (t *transaction) childFinished(*traceSpan) {

	t.mu.Lock()
	if t.closed || !t.finishRequested || t.pendingLocked() > 0 {
		t.mu.Unlock()
		return
	}
	t.finalizeLocked(t.requestedStatus)
}

func (t *transaction) pendingLocked() int {

	pending := 0
	for _, c := range t.children {
		if !c.IsFinished() {
			pending++
		}
	}
	return pending
}

// finalizeLocked completes the transaction: children abandoned by the caller
// are frozen as deadline_exceeded, the tree is flattened in registration
// order and handed to the sink exactly once. Called with t.mu held,
// releases it.
func (t *transaction) finalizeLocked(status SpanStatus) {

	t.closed = true
	end := t.clock.Now()

	for _, c := range t.children {
		c.forceFinish(StatusDeadlineExceeded, end)
	}
	t.span.forceFinish(status, end)

	record := &TransactionRecord{
		EventID: GetGuid(),
		Name:    t.name,
		Root:    t.span.record(),
		Spans:   make([]SpanRecord, 0, len(t.children)),
	}
	for _, c := range t.children {
		record.Spans = append(record.Spans, c.record())
	}

	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink.Submit(record)
	}
	if t.logger != nil {
		t.logger.Debug("transaction %s finished with %d spans", t.name, len(record.Spans))
	}
	close(t.done)
}

// autoFinish is the cancellable one-shot timer: the first finish through any
// other path closes done before the timer fires.
func (t *transaction) autoFinish() {

	select {
	case <-t.clock.After(t.autoFinishAfter):
		t.Finish()
	case <-t.done:
	}
}
