package common

import (
	"fmt"
	"testing"
	"time"
)

func newTestSpan() *traceSpan {

	return &traceSpan{
		context: SpanContext{
			TraceID:   NewTraceID(),
			SpanID:    NewSpanID(),
			Operation: "test.op",
			Sampled:   SampledTrue,
		},
		start: time.Now(),
		now:   time.Now,
	}
}

func TestSpanFinishOnce(t *testing.T) {

	span := newTestSpan()
	if span.IsFinished() {
		t.Fatal("Span is finished before finish")
	}

	span.FinishWithStatus(StatusOK)
	if !span.IsFinished() {
		t.Fatal("Span is not finished")
	}

	span.FinishWithStatus(StatusCancelled)
	if span.record().Status != StatusOK {
		t.Error("Later finish overrode the first status")
	}
}

func TestSpanFinishDefaultStatus(t *testing.T) {

	span := newTestSpan()
	span.Finish()

	if span.record().Status != StatusOK {
		t.Error("Wrong default finish status")
	}
}

func TestSpanFrozenAfterFinish(t *testing.T) {

	span := newTestSpan()
	span.SetTag("k", "v")
	span.SetData("d", 42)
	span.Finish()

	span.SetTag("k", "v2")
	span.SetTag("new", "x")
	span.RemoveTag("k")
	span.SetData("d", 43)
	span.RemoveData("d")

	r := span.record()
	if r.Tags["k"] != "v" || len(r.Tags) != 1 {
		t.Error("Tags changed after finish")
	}
	if r.Data["d"] != 42 || len(r.Data) != 1 {
		t.Error("Data changed after finish")
	}
}

func TestSpanTagsAndData(t *testing.T) {

	span := newTestSpan()
	span.SetTag("a", "1").SetTag("b", "2").RemoveTag("a")
	span.SetData("x", "y").RemoveData("x")
	span.Finish()

	r := span.record()
	if len(r.Tags) != 1 || r.Tags["b"] != "2" {
		t.Error("Wrong tags")
	}
	if len(r.Data) != 0 {
		t.Error("Wrong data")
	}
}

func TestTraceHeader(t *testing.T) {

	trace := NewTraceID()
	span := NewSpanID()

	sc := SpanContext{TraceID: trace, SpanID: span, Sampled: SampledTrue}
	expected := fmt.Sprintf("%s-%s-1", trace.String(), span.String())
	if sc.TraceHeader() != expected {
		t.Errorf("Wrong sampled header: %s", sc.TraceHeader())
	}

	sc.Sampled = SampledFalse
	expected = fmt.Sprintf("%s-%s-0", trace.String(), span.String())
	if sc.TraceHeader() != expected {
		t.Errorf("Wrong unsampled header: %s", sc.TraceHeader())
	}

	sc.Sampled = SampledUndefined
	expected = fmt.Sprintf("%s-%s", trace.String(), span.String())
	if sc.TraceHeader() != expected {
		t.Errorf("Wrong undetermined header: %s", sc.TraceHeader())
	}
}

func TestParseTraceHeader(t *testing.T) {

	trace := NewTraceID()
	span := NewSpanID()

	header := SpanContext{TraceID: trace, SpanID: span, Sampled: SampledTrue}.TraceHeader()

	gotTrace, gotSpan, sampled, err := ParseTraceHeader(header)
	if err != nil {
		t.Fatal(err)
	}
	if gotTrace != trace || gotSpan != span || sampled != SampledTrue {
		t.Error("Wrong parsed header")
	}

	_, _, sampled, err = ParseTraceHeader(fmt.Sprintf("%s-%s", trace, span))
	if err != nil || sampled != SampledUndefined {
		t.Error("Wrong undetermined header parse")
	}

	if _, _, _, err := ParseTraceHeader("garbage"); err == nil {
		t.Error("Invalid header accepted")
	}
	if _, _, _, err := ParseTraceHeader(fmt.Sprintf("%s-%s-2", trace, span)); err == nil {
		t.Error("Invalid sampled flag accepted")
	}
}
