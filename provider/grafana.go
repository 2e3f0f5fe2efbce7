package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/devopsext/tracing/common"
	"github.com/devopsext/utils"
)

type GrafanaAnnotationResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}

type GrafanaAnnotation struct {
	Time    int      `json:"time"`
	TimeEnd int      `json:"timeEnd"`
	Tags    []string `json:"tags"`
	Text    string   `json:"text"`
}

type GrafanaOptions struct {
	URL      string
	ApiKey   string
	Tags     string
	Timeout  int
	Endpoint string
}

// GrafanaSink marks each finished transaction as a Grafana annotation
// spanning its wall clock interval.
type GrafanaSink struct {
	options GrafanaOptions
	logger  common.Logger
	tags    []string
	client  *http.Client
	ctx     context.Context
}

func (gs *GrafanaSink) httpDoRequest(method, query string, params url.Values, buf io.Reader) ([]byte, int, error) {
	u, _ := url.Parse(gs.options.URL)
	u.Path = path.Join(u.Path, query)
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(method, u.String(), buf)
	if err != nil {
		return nil, 0, err
	}
	req = req.WithContext(gs.ctx)
	if !strings.Contains(gs.options.ApiKey, ":") {
		req.Header.Set("Authorization", "Bearer "+gs.options.ApiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	resp, err := gs.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	return data, resp.StatusCode, err
}

func (gs *GrafanaSink) httpPost(query string, params url.Values, body []byte) ([]byte, int, error) {
	return gs.httpDoRequest("POST", query, params, bytes.NewBuffer(body))
}

func (gs *GrafanaSink) createAnnotation(a GrafanaAnnotation) (*GrafanaAnnotationResponse, error) {

	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}

	raw, code, err := gs.httpPost(gs.options.Endpoint, nil, b)
	if err != nil {
		return nil, err
	}
	if code != 200 {
		return nil, fmt.Errorf("HTTP error %d: returns %s", code, raw)
	}

	var res GrafanaAnnotationResponse
	err = json.Unmarshal(raw, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (gs *GrafanaSink) Submit(record *common.TransactionRecord) {

	tags := append([]string{}, gs.tags...)
	tags = append(tags, record.Root.Operation, string(record.Root.Status))

	a := GrafanaAnnotation{
		Time:    int(record.Root.StartTime.UTC().UnixMilli()),
		TimeEnd: int(record.Root.EndTime.UTC().UnixMilli()),
		Tags:    tags,
		Text:    fmt.Sprintf("%s [%s]", record.Name, record.Root.TraceID),
	}

	ar, err := gs.createAnnotation(a)
	if err != nil {
		gs.logger.Error(err)
		return
	}
	gs.logger.Debug("Annotation %d. %s", ar.ID, ar.Message)
}

func (gs *GrafanaSink) Stop() {
	// nothing here
}

func NewGrafanaSink(options GrafanaOptions, logger common.Logger, stdout *Stdout) *GrafanaSink {

	if logger == nil {
		logger = stdout
	}

	if utils.IsEmpty(options.URL) || utils.IsEmpty(options.Endpoint) {
		stdout.Debug("Grafana sink is disabled.")
		return nil
	}

	var tags []string
	for k, v := range common.GetKeyValues(options.Tags) {
		tags = append(tags, fmt.Sprintf("%s:%s", k, v))
	}

	logger.Info("Grafana sink is up...")

	return &GrafanaSink{
		options: options,
		logger:  logger,
		tags:    tags,
		client:  common.MakeHttpClient(options.Timeout),
		ctx:     context.Background(),
	}
}
