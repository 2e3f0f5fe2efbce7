package provider

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/devopsext/tracing/common"
	"github.com/devopsext/utils"
)

type WebhookOptions struct {
	URL     string
	Tags    string
	Timeout int
}

// WebhookSink posts every finished transaction as a JSON document.
type WebhookSink struct {
	options WebhookOptions
	logger  common.Logger
	tags    map[string]string
	client  *http.Client
}

type webhookPayload struct {
	Tags        map[string]string         `json:"tags,omitempty"`
	Transaction *common.TransactionRecord `json:"transaction"`
}

func (ws *WebhookSink) Submit(record *common.TransactionRecord) {

	payload := webhookPayload{
		Tags:        ws.tags,
		Transaction: record,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		ws.logger.Error("webhook marshal: %v", err)
		return
	}

	resp, err := ws.client.Post(ws.options.URL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		ws.logger.Error("webhook post: %v", err)
		return
	}

	defer resp.Body.Close()

	rBody, err := io.ReadAll(resp.Body)
	if err != nil {
		ws.logger.Error("webhook post response: %v", err)
		return
	}
	ws.logger.Debug(string(rBody))
}

func (ws *WebhookSink) Stop() {
	ws.client.CloseIdleConnections()
	ws.logger.Info("Webhook sink stopped.")
}

func NewWebhookSink(options WebhookOptions, logger common.Logger, stdout *Stdout) *WebhookSink {

	if logger == nil {
		logger = stdout
	}

	if utils.IsEmpty(options.URL) {
		stdout.Debug("Webhook sink is disabled.")
		return nil
	}

	logger.Info("Webhook sink is up...")

	return &WebhookSink{
		options: options,
		logger:  logger,
		tags:    common.GetKeyValues(options.Tags),
		client:  common.MakeHttpClient(options.Timeout),
	}
}
