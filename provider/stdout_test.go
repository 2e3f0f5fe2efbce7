package provider

import (
	"testing"
	"time"

	"github.com/devopsext/tracing/common"
)

func sinkTestRecord() *common.TransactionRecord {

	start := time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)

	return &common.TransactionRecord{
		EventID: "c3k8fmppp0g0q5g0",
		Name:    "checkout",
		Root: common.SpanRecord{
			TraceID:   "4bf92f3577b34da6a3ce929d0e0e4736",
			SpanID:    "00f067aa0ba902b7",
			Operation: "ui.load",
			Status:    common.StatusOK,
			StartTime: start,
			EndTime:   start.Add(300 * time.Millisecond),
			Tags:      map[string]string{"platform": "test"},
		},
		Spans: []common.SpanRecord{
			{
				TraceID:      "4bf92f3577b34da6a3ce929d0e0e4736",
				SpanID:       "11f067aa0ba902b8",
				ParentSpanID: "00f067aa0ba902b7",
				Operation:    "db.query",
				Description:  "SELECT items",
				Status:       common.StatusOK,
				StartTime:    start.Add(10 * time.Millisecond),
				EndTime:      start.Add(120 * time.Millisecond),
				Data:         map[string]interface{}{"rows": 3},
			},
			{
				TraceID:      "4bf92f3577b34da6a3ce929d0e0e4736",
				SpanID:       "22f067aa0ba902b9",
				ParentSpanID: "00f067aa0ba902b7",
				Operation:    "http.client",
				Status:       common.StatusDeadlineExceeded,
				StartTime:    start.Add(20 * time.Millisecond),
				EndTime:      start.Add(300 * time.Millisecond),
			},
		},
	}
}

func TestStdout(t *testing.T) {

	stdout := NewStdout(StdoutOptions{
		Format:          "template",
		Level:           "info",
		Template:        "{{.msg}}",
		TimestampFormat: time.RFC3339Nano,
		TextColors:      true,
	})
	if stdout == nil {
		t.Error("Stdout is not defined")
	}
	stdout.Info("Some info message...")
	stdout.Warn("Some warn message...")
	stdout.Error("Some error message...")
}

func TestStdoutSink(t *testing.T) {

	stdout := NewStdout(StdoutOptions{
		Format:          "template",
		Level:           "debug",
		Template:        "{{.msg}}",
		TimestampFormat: time.RFC3339Nano,
	})
	if stdout == nil {
		t.Fatal("Invalid stdout")
	}
	stdout.SetCallerOffset(1)

	sink := NewStdoutSink(stdout)
	if sink == nil {
		t.Fatal("Invalid stdout sink")
	}
	sink.Submit(sinkTestRecord())
}

func TestStdoutSinkNoLogger(t *testing.T) {

	if sink := NewStdoutSink(nil); sink != nil {
		t.Error("Stdout sink should be disabled without stdout")
	}
}
