package provider

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/devopsext/tracing/common"
	"github.com/devopsext/utils"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

type DataDogOptions struct {
	ServiceName string
	Environment string
	Version     string
	Tags        string
	Debug       bool
}

type DataDogSinkOptions struct {
	DataDogOptions
	AgentHost string
	AgentPort int
}

type DataDogMeterOptions struct {
	DataDogOptions
	AgentHost string
	AgentPort int
	Prefix    string
}

type DataDogInternalLogger struct {
	logger common.Logger
}

// DataDogSink replays finished transactions into the DataDog agent.
// Agent span ids are assigned by the DataDog tracer, the engine ids
// travel along as tags.
type DataDogSink struct {
	options DataDogSinkOptions
	logger  common.Logger
}

type DataDogCounter struct {
	meter *DataDogMeter
	name  string
	tags  []string
}

type DataDogGauge struct {
	meter *DataDogMeter
	name  string
	tags  []string
}

type DataDogMeter struct {
	options DataDogMeterOptions
	logger  common.Logger
	client  *statsd.Client
}

func (ddil *DataDogInternalLogger) Log(msg string) {
	ddil.logger.Info(msg)
}

func dataDogSpanOptions(record common.SpanRecord) []tracer.StartSpanOption {

	opts := []tracer.StartSpanOption{
		tracer.StartTime(record.StartTime),
		tracer.Tag("trace_id", record.TraceID),
		tracer.Tag("span_id", record.SpanID),
		tracer.Tag("status", string(record.Status)),
	}
	if !utils.IsEmpty(record.ParentSpanID) {
		opts = append(opts, tracer.Tag("parent_span_id", record.ParentSpanID))
	}
	if !utils.IsEmpty(record.Description) {
		opts = append(opts, tracer.ResourceName(record.Description))
	}
	for k, v := range record.Tags {
		opts = append(opts, tracer.Tag(k, v))
	}
	for k, v := range record.Data {
		opts = append(opts, tracer.Tag(k, v))
	}
	return opts
}

func (dds *DataDogSink) replaySpan(record common.SpanRecord, parent ddtrace.SpanContext) ddtrace.Span {

	opts := dataDogSpanOptions(record)
	if parent != nil {
		opts = append(opts, tracer.ChildOf(parent))
	}

	span := tracer.StartSpan(record.Operation, opts...)
	if spanFailed(record.Status) {
		span.SetTag("error", true)
	}
	return span
}

func (dds *DataDogSink) Submit(record *common.TransactionRecord) {

	root := dds.replaySpan(record.Root, nil)
	root.SetTag("transaction", record.Name)
	root.SetTag("event_id", record.EventID)

	for _, s := range record.Spans {
		span := dds.replaySpan(s, root.Context())
		span.Finish(tracer.FinishTime(s.EndTime))
	}

	root.Finish(tracer.FinishTime(record.Root.EndTime))
}

func (dds *DataDogSink) Stop() {
	tracer.Stop()
}

func setDataDogTracerTags(opts []tracer.StartOption, sTags string) []tracer.StartOption {

	for k, v := range common.GetKeyValues(sTags) {
		opts = append(opts, tracer.WithGlobalTag(k, v))
	}
	return opts
}

func startDataDogTracer(options DataDogSinkOptions, logger common.Logger) bool {

	disabled := utils.IsEmpty(options.AgentHost)
	if disabled {
		return false
	}

	addr := net.JoinHostPort(
		options.AgentHost,
		strconv.Itoa(options.AgentPort),
	)

	var opts []tracer.StartOption
	opts = append(opts, tracer.WithAgentAddr(addr))
	opts = append(opts, tracer.WithServiceName(options.ServiceName))
	opts = append(opts, tracer.WithServiceVersion(options.Version))
	opts = append(opts, tracer.WithEnv(options.Environment))

	if options.Debug {
		opts = append(opts, tracer.WithLogger(&DataDogInternalLogger{logger: logger}))
	}

	opts = setDataDogTracerTags(opts, options.Tags)

	tracer.Start(opts...)
	return true
}

func NewDataDogSink(options DataDogSinkOptions, logger common.Logger, stdout *Stdout) *DataDogSink {

	if logger == nil {
		logger = stdout
	}

	enabled := startDataDogTracer(options, logger)
	if !enabled {
		stdout.Debug("DataDog sink is disabled.")
		return nil
	}

	logger.Info("DataDog sink is up...")

	return &DataDogSink{
		options: options,
		logger:  logger,
	}
}

func (ddm *DataDogMeter) globalTags() []string {

	tags := []string{
		fmt.Sprintf("dd.service:%s", ddm.options.ServiceName),
		fmt.Sprintf("dd.version:%s", ddm.options.Version),
		fmt.Sprintf("dd.env:%s", ddm.options.Environment),
	}
	for k, v := range common.GetKeyValues(ddm.options.Tags) {
		tags = append(tags, fmt.Sprintf("%s:%s", k, v))
	}
	return tags
}

func (ddm *DataDogMeter) metricName(name string, prefixes ...string) string {

	var names []string

	if !utils.IsEmpty(ddm.options.Prefix) {
		names = append(names, ddm.options.Prefix)
	}
	if len(prefixes) > 0 {
		names = append(names, strings.Join(prefixes, "."))
	}
	names = append(names, name)
	return strings.Join(names, ".")
}

func (ddm *DataDogMeter) labelTags(labels common.Labels) []string {

	tags := ddm.globalTags()
	for k, v := range labels {
		tags = append(tags, fmt.Sprintf("%s:%s", k, v))
	}
	return tags
}

func (ddmc *DataDogCounter) Inc() common.Counter {
	return ddmc.Add(1)
}

func (ddmc *DataDogCounter) Add(value int) common.Counter {

	err := ddmc.meter.client.Count(ddmc.name, int64(value), ddmc.tags, 1)
	if err != nil {
		ddmc.meter.logger.Error(err)
	}
	return ddmc
}

func (ddmg *DataDogGauge) Set(value float64) common.Gauge {

	err := ddmg.meter.client.Gauge(ddmg.name, value, ddmg.tags, 1)
	if err != nil {
		ddmg.meter.logger.Error(err)
	}
	return ddmg
}

func (ddm *DataDogMeter) Counter(name, description string, labels common.Labels, prefixes ...string) common.Counter {

	return &DataDogCounter{
		meter: ddm,
		name:  ddm.metricName(name, prefixes...),
		tags:  ddm.labelTags(labels),
	}
}

func (ddm *DataDogMeter) Gauge(name, description string, labels common.Labels, prefixes ...string) common.Gauge {

	return &DataDogGauge{
		meter: ddm,
		name:  ddm.metricName(name, prefixes...),
		tags:  ddm.labelTags(labels),
	}
}

func (ddm *DataDogMeter) Stop() {

	if err := ddm.client.Close(); err != nil {
		ddm.logger.Error(err)
	}
}

func NewDataDogMeter(options DataDogMeterOptions, logger common.Logger, stdout *Stdout) *DataDogMeter {

	if logger == nil {
		logger = stdout
	}

	if utils.IsEmpty(options.AgentHost) {
		stdout.Debug("DataDog meter is disabled.")
		return nil
	}

	client, err := statsd.New(fmt.Sprintf("%s:%d", options.AgentHost, options.AgentPort))
	if err != nil {
		logger.Error(err)
		return nil
	}

	logger.Info("DataDog meter is up...")

	return &DataDogMeter{
		options: options,
		logger:  logger,
		client:  client,
	}
}
