package common

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Sampled is the tri-state decision on whether a trace is kept for transport.
type Sampled int8

const (
	SampledUndefined Sampled = iota
	SampledTrue
	SampledFalse
)

func (s Sampled) Defined() bool {
	return s != SampledUndefined
}

func (s Sampled) Bool() bool {
	return s == SampledTrue
}

// SpanStatus is the terminal outcome of a span.
type SpanStatus string

const (
	StatusUnset            SpanStatus = ""
	StatusOK               SpanStatus = "ok"
	StatusCancelled        SpanStatus = "cancelled"
	StatusAborted          SpanStatus = "aborted"
	StatusUnknown          SpanStatus = "unknown"
	StatusInternalError    SpanStatus = "internal_error"
	StatusDeadlineExceeded SpanStatus = "deadline_exceeded"
)

// SpanContext is the immutable identity of a span. A span that needs a
// different context is a new span.
type SpanContext struct {
	TraceID      TraceID
	SpanID       SpanID
	ParentSpanID SpanID
	Operation    string
	Description  string
	Sampled      Sampled
}

// TraceHeader renders the propagation header "{trace}-{span}-{flag}".
// The flag is omitted while the sampling decision is undetermined.
func (sc SpanContext) TraceHeader() string {

	header := fmt.Sprintf("%s-%s", sc.TraceID.String(), sc.SpanID.String())
	if !sc.Sampled.Defined() {
		return header
	}
	if sc.Sampled.Bool() {
		return header + "-1"
	}
	return header + "-0"
}

// ParseTraceHeader reads an inbound propagation header so a transaction can
// continue a trace started by an upstream service.
func ParseTraceHeader(header string) (TraceID, SpanID, Sampled, error) {

	parts := strings.Split(strings.TrimSpace(header), "-")
	if len(parts) < 2 || len(parts) > 3 {
		return TraceID{}, SpanID{}, SampledUndefined, fmt.Errorf("wrong trace header: %s", header)
	}

	traceID, err := ParseTraceID(parts[0])
	if err != nil {
		return TraceID{}, SpanID{}, SampledUndefined, err
	}

	spanID, err := ParseSpanID(parts[1])
	if err != nil {
		return TraceID{}, SpanID{}, SampledUndefined, err
	}

	sampled := SampledUndefined
	if len(parts) == 3 {
		switch parts[2] {
		case "1":
			sampled = SampledTrue
		case "0":
			sampled = SampledFalse
		default:
			return TraceID{}, SpanID{}, SampledUndefined, fmt.Errorf("wrong sampled flag: %s", parts[2])
		}
	}
	return traceID, spanID, sampled, nil
}

// traceSpan is the active span implementation. Once finished it is frozen:
// every mutating call becomes a no-op and the first recorded status sticks.
type traceSpan struct {
	mu       sync.Mutex
	context  SpanContext
	start    time.Time
	end      time.Time
	status   SpanStatus
	tags     map[string]string
	data     map[string]interface{}
	finished bool
	now      func() time.Time
	onFinish func(*traceSpan)
}

func (ts *traceSpan) Context() SpanContext {
	return ts.context
}

func (ts *traceSpan) SetTag(key, value string) Span {

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.finished {
		return ts
	}
	if ts.tags == nil {
		ts.tags = make(map[string]string)
	}
	ts.tags[key] = value
	return ts
}

func (ts *traceSpan) RemoveTag(key string) Span {

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.finished {
		return ts
	}
	delete(ts.tags, key)
	return ts
}

func (ts *traceSpan) SetData(key string, value interface{}) Span {

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.finished {
		return ts
	}
	if ts.data == nil {
		ts.data = make(map[string]interface{})
	}
	ts.data[key] = value
	return ts
}

func (ts *traceSpan) RemoveData(key string) Span {

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.finished {
		return ts
	}
	delete(ts.data, key)
	return ts
}

func (ts *traceSpan) IsFinished() bool {

	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.finished
}

func (ts *traceSpan) Finish() {
	ts.FinishWithStatus(StatusOK)
}

func (ts *traceSpan) FinishWithStatus(status SpanStatus) {

	ts.mu.Lock()
	if ts.finished {
		ts.mu.Unlock()
		return
	}
	if status == StatusUnset {
		status = StatusOK
	}
	ts.end = ts.now()
	ts.status = status
	ts.finished = true
	onFinish := ts.onFinish
	ts.mu.Unlock()

	// Notify outside the span lock, the owner takes its own lock.
	if onFinish != nil {
		onFinish(ts)
	}
}

func (ts *traceSpan) ToTraceHeader() string {
	return ts.context.TraceHeader()
}

// forceFinish freezes the span without notifying the owner. The owner calls
// it while finalizing, a notification back would deadlock.
func (ts *traceSpan) forceFinish(status SpanStatus, end time.Time) {

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.finished {
		return
	}
	ts.end = end
	ts.status = status
	ts.finished = true
}

func (ts *traceSpan) record() SpanRecord {

	ts.mu.Lock()
	defer ts.mu.Unlock()

	r := SpanRecord{
		TraceID:     ts.context.TraceID.String(),
		SpanID:      ts.context.SpanID.String(),
		Operation:   ts.context.Operation,
		Description: ts.context.Description,
		Status:      ts.status,
		StartTime:   ts.start,
		EndTime:     ts.end,
	}
	if !ts.context.ParentSpanID.IsZero() {
		r.ParentSpanID = ts.context.ParentSpanID.String()
	}
	if len(ts.tags) > 0 {
		r.Tags = make(map[string]string, len(ts.tags))
		for k, v := range ts.tags {
			r.Tags[k] = v
		}
	}
	if len(ts.data) > 0 {
		r.Data = make(map[string]interface{}, len(ts.data))
		for k, v := range ts.data {
			r.Data[k] = v
		}
	}
	return r
}
