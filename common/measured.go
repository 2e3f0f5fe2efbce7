package common

// MeasuredSink wraps a sink and counts what flows through it: transactions,
// spans, and spans that were force-finished because the caller abandoned
// them before the transaction completed.
type MeasuredSink struct {
	sink         Sink
	transactions Counter
	spans        Counter
	abandoned    Counter
}

func (ms *MeasuredSink) Submit(record *TransactionRecord) {

	ms.transactions.Inc()
	ms.spans.Add(len(record.Spans))

	abandoned := 0
	for _, s := range record.Spans {
		if s.Status == StatusDeadlineExceeded {
			abandoned++
		}
	}
	if abandoned > 0 {
		ms.abandoned.Add(abandoned)
	}

	ms.sink.Submit(record)
}

func NewMeasuredSink(sink Sink, meter Meter) *MeasuredSink {

	if sink == nil || meter == nil {
		return nil
	}

	return &MeasuredSink{
		sink:         sink,
		transactions: meter.Counter("transactions_submitted", "Transactions handed to the sink", nil),
		spans:        meter.Counter("spans_submitted", "Spans included in submitted transactions", nil),
		abandoned:    meter.Counter("spans_abandoned", "Spans force-finished at transaction completion", nil),
	}
}
