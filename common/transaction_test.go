package common

import (
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

type captureSink struct {
	mu      sync.Mutex
	records []*TransactionRecord
}

func (cs *captureSink) Submit(record *TransactionRecord) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.records = append(cs.records, record)
}

func (cs *captureSink) count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.records)
}

func (cs *captureSink) last() *TransactionRecord {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.records) == 0 {
		return nil
	}
	return cs.records[len(cs.records)-1]
}

func awaitDone(t *testing.T, tx Transaction) {
	t.Helper()
	select {
	case <-tx.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("Transaction did not complete")
	}
}

func TestTransactionFinish(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{
		Name:      "test-tx",
		Operation: "task",
		Sampled:   SampledTrue,
	}, sink, nil)

	child := tx.StartChild("child.op", "first child")
	child.SetTag("k", "v")
	child.Finish()

	tx.Finish()
	awaitDone(t, tx)

	if !tx.IsFinished() {
		t.Fatal("Transaction is not finished")
	}
	if sink.count() != 1 {
		t.Fatalf("Wrong submission count: %d", sink.count())
	}

	record := sink.last()
	if record.Name != "test-tx" {
		t.Error("Wrong transaction name")
	}
	if IsEmpty(record.EventID) {
		t.Error("Invalid event ID")
	}
	if record.Root.Status != StatusOK {
		t.Error("Wrong root status")
	}
	if len(record.Spans) != 1 {
		t.Fatalf("Wrong span count: %d", len(record.Spans))
	}
	if record.Spans[0].Operation != "child.op" {
		t.Error("Wrong child operation")
	}
	if record.Spans[0].ParentSpanID != tx.Context().SpanID.String() {
		t.Error("Wrong child parent")
	}
	if record.Spans[0].TraceID != tx.Context().TraceID.String() {
		t.Error("Wrong child trace")
	}
	if record.Spans[0].Tags["k"] != "v" {
		t.Error("Wrong child tags")
	}
}

func TestTransactionFirstFinishWins(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{Name: "tx", Sampled: SampledTrue}, sink, nil)

	tx.Finish()
	tx.FinishWithStatus(StatusCancelled)
	tx.FinishWithStatus(StatusAborted)

	if sink.count() != 1 {
		t.Fatalf("Wrong submission count: %d", sink.count())
	}
	if sink.last().Root.Status != StatusOK {
		t.Error("Later finish overrode the first status")
	}
}

func TestTransactionFrozenAfterFinish(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{Name: "tx", Sampled: SampledTrue}, sink, nil)

	tx.SetTag("k", "v")
	tx.Finish()
	tx.SetTag("k", "v2")

	if sink.last().Root.Tags["k"] != "v" {
		t.Error("Root tags changed after finish")
	}
}

func TestStartChildAfterFinish(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{Name: "tx", Sampled: SampledTrue}, sink, nil)
	tx.Finish()

	child := tx.StartChild("late.op", "")
	child.SetTag("k", "v")
	child.Finish()

	if child.ToTraceHeader() != "" {
		t.Error("Late child is not the no-op span")
	}
	if len(sink.last().Spans) != 0 {
		t.Error("Late child appeared in the flattened list")
	}
}

func TestStartChildWithParentSpanID(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{Name: "tx", Sampled: SampledTrue}, sink, nil)

	parent := NewSpanID()
	child := tx.StartChildWithParentSpanID(parent, "detached.op", "")
	child.Finish()
	tx.Finish()

	record := sink.last()
	if len(record.Spans) != 1 {
		t.Fatal("Detached child was not registered")
	}
	if record.Spans[0].ParentSpanID != parent.String() {
		t.Error("Wrong detached parent")
	}
	if record.Spans[0].TraceID != tx.Context().TraceID.String() {
		t.Error("Detached child did not inherit the trace")
	}
}

func TestWaitForChildren(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{
		Name:            "tx",
		Sampled:         SampledTrue,
		WaitForChildren: true,
	}, sink, nil)

	a := tx.StartChild("a", "")
	b := tx.StartChild("b", "")

	tx.Finish()
	if tx.IsFinished() {
		t.Fatal("Transaction finished with pending children")
	}

	a.Finish()
	if tx.IsFinished() {
		t.Fatal("Transaction finished with one pending child")
	}

	b.Finish()
	awaitDone(t, tx)

	if !tx.IsFinished() {
		t.Fatal("Transaction is not finished")
	}
	if sink.count() != 1 {
		t.Fatalf("Wrong submission count: %d", sink.count())
	}
	if len(sink.last().Spans) != 2 {
		t.Error("Wrong flattened span count")
	}
}

func TestWaitForChildrenFinishLast(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{
		Name:            "tx",
		Sampled:         SampledTrue,
		WaitForChildren: true,
	}, sink, nil)

	a := tx.StartChild("a", "")
	b := tx.StartChild("b", "")

	a.Finish()
	b.Finish()
	if tx.IsFinished() {
		t.Fatal("Transaction finished without an explicit finish")
	}

	tx.FinishWithStatus(StatusCancelled)
	awaitDone(t, tx)

	if sink.last().Root.Status != StatusCancelled {
		t.Error("Wrong root status")
	}
}

func TestWaitForChildrenKeepsRequestedStatus(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{
		Name:            "tx",
		Sampled:         SampledTrue,
		WaitForChildren: true,
	}, sink, nil)

	a := tx.StartChild("a", "")

	tx.FinishWithStatus(StatusAborted)
	tx.FinishWithStatus(StatusOK)

	a.Finish()
	awaitDone(t, tx)

	if sink.last().Root.Status != StatusAborted {
		t.Error("Deferred finish lost the first requested status")
	}
}

func TestAbandonedChildren(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{Name: "tx", Sampled: SampledTrue}, sink, nil)

	done := tx.StartChild("done.op", "")
	done.FinishWithStatus(StatusInternalError)
	tx.StartChild("abandoned.op", "")

	tx.Finish()
	awaitDone(t, tx)

	record := sink.last()
	if len(record.Spans) != 2 {
		t.Fatalf("Wrong span count: %d", len(record.Spans))
	}
	if record.Spans[0].Status != StatusInternalError {
		t.Error("Finished child status was overridden")
	}
	if record.Spans[1].Status != StatusDeadlineExceeded {
		t.Error("Abandoned child was not force-finished as deadline_exceeded")
	}
}

func TestFlattenedOrder(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{Name: "tx", Sampled: SampledTrue}, sink, nil)

	first := tx.StartChild("first", "")
	second := tx.StartChild("second", "")
	third := tx.StartChild("third", "")

	// finish out of order, the flattened list keeps registration order
	third.Finish()
	first.Finish()
	second.Finish()
	tx.Finish()

	record := sink.last()
	ops := []string{"first", "second", "third"}
	for i, op := range ops {
		if record.Spans[i].Operation != op {
			t.Errorf("Wrong span order at %d: %s", i, record.Spans[i].Operation)
		}
	}
}

func TestAutoFinish(t *testing.T) {

	clock := clockz.NewFakeClock()
	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{
		Name:            "tx",
		Sampled:         SampledTrue,
		AutoFinishAfter: 200 * time.Millisecond,
		Clock:           clock,
	}, sink, nil)

	if tx.IsFinished() {
		t.Fatal("Transaction finished before the timer elapsed")
	}

	// let the timer goroutine arm before moving the clock
	time.Sleep(20 * time.Millisecond)
	clock.Advance(250 * time.Millisecond)
	clock.BlockUntilReady()

	awaitDone(t, tx)
	if sink.count() != 1 {
		t.Fatalf("Wrong submission count: %d", sink.count())
	}
	if sink.last().Root.Status != StatusOK {
		t.Error("Wrong auto-finish status")
	}
}

func TestAutoFinishCancelled(t *testing.T) {

	clock := clockz.NewFakeClock()
	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{
		Name:            "tx",
		Sampled:         SampledTrue,
		AutoFinishAfter: 200 * time.Millisecond,
		Clock:           clock,
	}, sink, nil)

	time.Sleep(20 * time.Millisecond)
	tx.FinishWithStatus(StatusCancelled)
	awaitDone(t, tx)

	clock.Advance(250 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(20 * time.Millisecond)

	if sink.count() != 1 {
		t.Fatalf("Timer fired after finish, submissions: %d", sink.count())
	}
	if sink.last().Root.Status != StatusCancelled {
		t.Error("Timer overrode the explicit status")
	}
}

func TestUnsampledTransaction(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{Name: "tx", Sampled: SampledFalse}, sink, nil)

	child := tx.StartChild("op", "")
	child.Finish()
	tx.Finish()

	if sink.count() != 0 {
		t.Error("Unsampled transaction was submitted")
	}
	if tx.ToTraceHeader() != "" {
		t.Error("Unsampled transaction is not the no-op variant")
	}
}

func TestSampleRate(t *testing.T) {

	sink := &captureSink{}

	always := NewTransaction(TransactionOptions{Name: "tx", SampleRate: 1}, sink, nil)
	if always.Context().Sampled != SampledTrue {
		t.Error("Rate 1 did not sample")
	}

	never := NewTransaction(TransactionOptions{Name: "tx", SampleRate: -1}, sink, nil)
	if never.Context().Sampled.Defined() {
		t.Error("Zero rate decided the sampling")
	}
}

func TestTraceContinuation(t *testing.T) {

	upstream := NewTransaction(TransactionOptions{Name: "up", Sampled: SampledTrue}, &captureSink{}, nil)
	header := upstream.ToTraceHeader()

	traceID, parentSpanID, sampled, err := ParseTraceHeader(header)
	if err != nil {
		t.Fatal(err)
	}

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{
		Name:         "down",
		Sampled:      sampled,
		TraceID:      traceID,
		ParentSpanID: parentSpanID,
	}, sink, nil)
	tx.Finish()

	record := sink.last()
	if record.Root.TraceID != upstream.Context().TraceID.String() {
		t.Error("Trace was not continued")
	}
	if record.Root.ParentSpanID != upstream.Context().SpanID.String() {
		t.Error("Wrong continued parent")
	}
}

func TestConcurrentChildren(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{
		Name:            "tx",
		Sampled:         SampledTrue,
		WaitForChildren: true,
	}, sink, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			child := tx.StartChild("op", "")
			child.SetTag("k", "v")
			child.Finish()
		}()
	}
	wg.Wait()

	tx.Finish()
	awaitDone(t, tx)

	if sink.count() != 1 {
		t.Fatalf("Wrong submission count: %d", sink.count())
	}
	if len(sink.last().Spans) != 50 {
		t.Errorf("Wrong span count: %d", len(sink.last().Spans))
	}
}

func TestConcurrentFinish(t *testing.T) {

	sink := &captureSink{}
	tx := NewTransaction(TransactionOptions{Name: "tx", Sampled: SampledTrue}, sink, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx.Finish()
		}()
	}
	wg.Wait()

	if sink.count() != 1 {
		t.Fatalf("Sink was invoked %d times", sink.count())
	}
}
