package provider

import (
	"context"
	"strings"
	"time"

	"github.com/devopsext/tracing/common"
	"github.com/devopsext/utils"
	"github.com/newrelic/newrelic-telemetry-sdk-go/telemetry"
)

type NewRelicOptions struct {
	ApiKey      string
	ServiceName string
	Environment string
	Version     string
	Attributes  string
	Debug       bool
}

type NewRelicSinkOptions struct {
	NewRelicOptions
	Endpoint string
}

type NewRelicMeterOptions struct {
	NewRelicOptions
	Endpoint string
	Prefix   string
}

// NewRelicSink ships finished transactions to the NewRelic trace API.
// Engine ids are reused verbatim, so the parent/child structure survives.
type NewRelicSink struct {
	options   NewRelicSinkOptions
	logger    common.Logger
	harvester *telemetry.Harvester
}

type NewRelicCounter struct {
	meter      *NewRelicMeter
	name       string
	attributes map[string]interface{}
}

type NewRelicGauge struct {
	meter      *NewRelicMeter
	name       string
	attributes map[string]interface{}
}

type NewRelicMeter struct {
	harvester *telemetry.Harvester
	options   NewRelicMeterOptions
	logger    common.Logger
}

func newRelicAttributes(sAttributes string) map[string]interface{} {

	attributes := make(map[string]interface{})
	for k, v := range common.GetKeyValues(sAttributes) {
		attributes[k] = v
	}
	return attributes
}

func newNewRelicHarvester(options NewRelicOptions, urlOverride func(*telemetry.Config), stdout *Stdout) (*telemetry.Harvester, error) {

	var cfgs []func(*telemetry.Config)
	cfgs = append(cfgs,
		telemetry.ConfigAPIKey(options.ApiKey),
		urlOverride,
		telemetry.ConfigCommonAttributes(newRelicAttributes(options.Attributes)),
	)

	if options.Debug {
		cfgs = append(cfgs,
			telemetry.ConfigBasicErrorLogger(stdout.log.Writer()),
			telemetry.ConfigBasicDebugLogger(stdout.log.Writer()),
		)
	}

	return telemetry.NewHarvester(cfgs...)
}

func (nrs *NewRelicSink) spanAttributes(record common.SpanRecord) map[string]interface{} {

	attributes := map[string]interface{}{
		"status":  string(record.Status),
		"env":     nrs.options.Environment,
		"version": nrs.options.Version,
	}
	if !utils.IsEmpty(record.Description) {
		attributes["description"] = record.Description
	}
	if spanFailed(record.Status) {
		attributes["error"] = true
	}
	for k, v := range record.Tags {
		attributes[k] = v
	}
	for k, v := range record.Data {
		attributes[k] = v
	}
	return attributes
}

func (nrs *NewRelicSink) replaySpan(record common.SpanRecord, attributes map[string]interface{}) {

	err := nrs.harvester.RecordSpan(telemetry.Span{
		ID:          record.SpanID,
		TraceID:     record.TraceID,
		Name:        record.Operation,
		ParentID:    record.ParentSpanID,
		Timestamp:   record.StartTime,
		Duration:    record.Duration(),
		ServiceName: nrs.options.ServiceName,
		Attributes:  attributes,
	})
	if err != nil {
		nrs.logger.Error(err)
	}
}

func (nrs *NewRelicSink) Submit(record *common.TransactionRecord) {

	attributes := nrs.spanAttributes(record.Root)
	attributes["transaction"] = record.Name
	attributes["event_id"] = record.EventID
	nrs.replaySpan(record.Root, attributes)

	for _, s := range record.Spans {
		nrs.replaySpan(s, nrs.spanAttributes(s))
	}
}

func (nrs *NewRelicSink) Stop() {
	nrs.harvester.HarvestNow(context.Background())
}

func NewNewRelicSink(options NewRelicSinkOptions, logger common.Logger, stdout *Stdout) *NewRelicSink {

	if logger == nil {
		logger = stdout
	}

	if utils.IsEmpty(options.Endpoint) {
		stdout.Debug("NewRelic sink is disabled.")
		return nil
	}

	harvester, err := newNewRelicHarvester(options.NewRelicOptions, telemetry.ConfigSpansURLOverride(options.Endpoint), stdout)
	if err != nil {
		stdout.Error(err)
		return nil
	}

	logger.Info("NewRelic sink is up...")

	return &NewRelicSink{
		options:   options,
		logger:    logger,
		harvester: harvester,
	}
}

func (nrm *NewRelicMeter) metricName(name string, prefixes ...string) string {

	var names []string

	if !utils.IsEmpty(nrm.options.Prefix) {
		names = append(names, nrm.options.Prefix)
	}
	names = append(names, prefixes...)
	names = append(names, name)
	return strings.Join(names, ".")
}

func newRelicLabelAttributes(labels common.Labels) map[string]interface{} {

	attributes := make(map[string]interface{})
	for k, v := range labels {
		attributes[k] = v
	}
	return attributes
}

func (nrc *NewRelicCounter) Inc() common.Counter {
	return nrc.Add(1)
}

func (nrc *NewRelicCounter) Add(value int) common.Counter {

	nrc.meter.harvester.RecordMetric(telemetry.Count{
		Timestamp:  time.Now(),
		Name:       nrc.name,
		Value:      float64(value),
		Attributes: nrc.attributes,
	})
	return nrc
}

func (nrg *NewRelicGauge) Set(value float64) common.Gauge {

	nrg.meter.harvester.RecordMetric(telemetry.Gauge{
		Timestamp:  time.Now(),
		Name:       nrg.name,
		Value:      value,
		Attributes: nrg.attributes,
	})
	return nrg
}

func (nrm *NewRelicMeter) Counter(name, description string, labels common.Labels, prefixes ...string) common.Counter {

	return &NewRelicCounter{
		meter:      nrm,
		name:       nrm.metricName(name, prefixes...),
		attributes: newRelicLabelAttributes(labels),
	}
}

func (nrm *NewRelicMeter) Gauge(name, description string, labels common.Labels, prefixes ...string) common.Gauge {

	return &NewRelicGauge{
		meter:      nrm,
		name:       nrm.metricName(name, prefixes...),
		attributes: newRelicLabelAttributes(labels),
	}
}

func (nrm *NewRelicMeter) Stop() {
	if nrm.harvester != nil {
		nrm.harvester.HarvestNow(context.Background())
	}
}

func NewNewRelicMeter(options NewRelicMeterOptions, logger common.Logger, stdout *Stdout) *NewRelicMeter {

	if logger == nil {
		logger = stdout
	}

	if utils.IsEmpty(options.Endpoint) {
		stdout.Debug("NewRelic meter is disabled.")
		return nil
	}

	harvester, err := newNewRelicHarvester(options.NewRelicOptions, telemetry.ConfigMetricsURLOverride(options.Endpoint), stdout)
	if err != nil {
		stdout.Error(err)
		return nil
	}

	logger.Info("NewRelic meter is up...")

	return &NewRelicMeter{
		harvester: harvester,
		options:   options,
		logger:    logger,
	}
}
