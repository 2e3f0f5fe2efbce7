package common

// The no-op variants let call sites stay branch-free: they are handed out
// when tracing is disabled by the sampling decision and when children are
// started on a finishing or finished transaction.

type noopSpan struct{}

func (n noopSpan) Context() SpanContext {
	return SpanContext{}
}

func (n noopSpan) SetTag(string, string) Span {
	return n
}

func (n noopSpan) RemoveTag(string) Span {
	return n
}

func (n noopSpan) SetData(string, interface{}) Span {
	return n
}

func (n noopSpan) RemoveData(string) Span {
	return n
}

func (n noopSpan) IsFinished() bool {
	return true
}

func (n noopSpan) Finish() {
}

func (n noopSpan) FinishWithStatus(SpanStatus) {
}

func (n noopSpan) ToTraceHeader() string {
	return ""
}

type noopTransaction struct {
	noopSpan
}

var noopDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (n noopTransaction) Name() string {
	return ""
}

func (n noopTransaction) StartChild(string, string) Span {
	return noopSpan{}
}

func (n noopTransaction) StartChildWithParentSpanID(SpanID, string, string) Span {
	return noopSpan{}
}

func (n noopTransaction) Done() <-chan struct{} {
	return noopDone
}

func NewNoopSpan() Span {
	return noopSpan{}
}

func NewNoopTransaction() Transaction {
	return noopTransaction{}
}
