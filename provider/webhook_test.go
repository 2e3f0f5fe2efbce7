package provider

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func webhookNewSink(url string) (*WebhookSink, *Stdout) {

	stdout := NewStdout(StdoutOptions{
		Format:          "template",
		Level:           "debug",
		Template:        "{{.msg}}",
		TimestampFormat: time.RFC3339Nano,
	})
	if stdout == nil {
		return nil, nil
	}
	stdout.SetCallerOffset(1)

	webhook := NewWebhookSink(WebhookOptions{
		URL:     url,
		Tags:    "tag1=value1,,tag3=${key3:value3}",
		Timeout: 5,
	}, nil, stdout)

	return webhook, stdout
}

func TestWebhookSink(t *testing.T) {

	var received webhookPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook, _ := webhookNewSink(server.URL)
	if webhook == nil {
		t.Fatal("Invalid webhook")
	}
	defer webhook.Stop()

	record := sinkTestRecord()
	webhook.Submit(record)

	if received.Transaction == nil {
		t.Fatal("Transaction is not posted")
	}
	if received.Transaction.Name != record.Name {
		t.Errorf("Transaction name %s is not %s", received.Transaction.Name, record.Name)
	}
	if received.Transaction.Root.TraceID != record.Root.TraceID {
		t.Errorf("Trace ID %s is not %s", received.Transaction.Root.TraceID, record.Root.TraceID)
	}
	if len(received.Transaction.Spans) != len(record.Spans) {
		t.Errorf("Spans %d is not %d", len(received.Transaction.Spans), len(record.Spans))
	}
	if received.Tags["tag1"] != "value1" {
		t.Error("Tag tag1 is not posted")
	}
	if received.Tags["tag3"] != "value3" {
		t.Error("Tag tag3 default is not posted")
	}
}

func TestWebhookSinkErrorLog(t *testing.T) {

	webhook, stdout := webhookNewSink("http://127.0.0.1:1")
	if webhook == nil {
		t.Fatal("Invalid webhook")
	}
	defer webhook.Stop()

	var buf bytes.Buffer
	stdout.log.SetOutput(&buf)

	webhook.Submit(sinkTestRecord())

	output := buf.String()
	if !strings.Contains(output, "webhook post:") {
		t.Errorf("Post error is not logged:\n%s", output)
	}
	if strings.Contains(output, "%!(") {
		t.Errorf("Post error is logged with broken formatting:\n%s", output)
	}
}

func TestWebhookSinkDisabled(t *testing.T) {

	webhook, _ := webhookNewSink("")
	if webhook != nil {
		t.Error("Webhook sink should be disabled without URL")
	}
}
