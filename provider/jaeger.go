package provider

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/devopsext/tracing/common"
	"github.com/devopsext/utils"
	"github.com/opentracing/opentracing-go"
	opentracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/uber/jaeger-client-go"
	jaegerConfig "github.com/uber/jaeger-client-go/config"
)

type JaegerOptions struct {
	ServiceName         string
	AgentHost           string
	AgentPort           int
	Endpoint            string
	User                string
	Password            string
	BufferFlushInterval int
	QueueSize           int
	Tags                string
	Version             string
}

// JaegerSink replays finished transactions into a jaeger tracer with the
// recorded timestamps. Jaeger assigns its own identifiers, the original
// trace and span ids travel as tags so traces stay correlatable.
type JaegerSink struct {
	options JaegerOptions
	tracer  opentracing.Tracer
	closer  io.Closer
	logger  common.Logger
}

type JaegerLogger struct {
	logger common.Logger
}

func (j *JaegerLogger) Error(msg string) {
	j.logger.Stack(-2).Error(msg).Stack(2)
}

func (j *JaegerLogger) Infof(msg string, args ...interface{}) {

	if utils.IsEmpty(msg) {
		return
	}

	msg = strings.TrimSpace(msg)
	if args != nil {
		j.logger.Stack(-2).Info(msg, args...).Stack(2)
	} else {
		j.logger.Stack(-2).Info(msg).Stack(2)
	}
}

func spanFailed(status common.SpanStatus) bool {
	return status != common.StatusOK && status != common.StatusUnset
}

func (js *JaegerSink) replaySpan(record common.SpanRecord, parent opentracing.SpanContext) {

	opts := []opentracing.StartSpanOption{
		opentracing.StartTime(record.StartTime),
	}
	if parent != nil {
		opts = append(opts, opentracing.ChildOf(parent))
	}

	span := js.tracer.StartSpan(record.Operation, opts...)
	span.SetTag("trace_id", record.TraceID)
	span.SetTag("span_id", record.SpanID)
	span.SetTag("parent_span_id", record.ParentSpanID)
	span.SetTag("status", string(record.Status))

	if !utils.IsEmpty(record.Description) {
		span.SetTag("description", record.Description)
	}
	for k, v := range record.Tags {
		span.SetTag(k, v)
	}
	if len(record.Data) > 0 {

		var fields []opentracingLog.Field
		for k, v := range record.Data {
			fields = append(fields, opentracingLog.Object(k, v))
		}
		span.LogFields(fields...)
	}
	if spanFailed(record.Status) {
		span.SetTag("error", true)
	}

	span.FinishWithOptions(opentracing.FinishOptions{FinishTime: record.EndTime})
}

func (js *JaegerSink) Submit(record *common.TransactionRecord) {

	root := js.tracer.StartSpan(record.Root.Operation,
		opentracing.StartTime(record.Root.StartTime))

	root.SetTag("transaction", record.Name)
	root.SetTag("event_id", record.EventID)
	root.SetTag("trace_id", record.Root.TraceID)
	root.SetTag("span_id", record.Root.SpanID)
	root.SetTag("status", string(record.Root.Status))
	for k, v := range record.Root.Tags {
		root.SetTag(k, v)
	}
	if spanFailed(record.Root.Status) {
		root.SetTag("error", true)
	}

	for _, s := range record.Spans {
		js.replaySpan(s, root.Context())
	}

	root.FinishWithOptions(opentracing.FinishOptions{FinishTime: record.Root.EndTime})
}

func parseJaegerTags(sTags string) []opentracing.Tag {

	tags := make([]opentracing.Tag, 0)
	for k, v := range common.GetKeyValues(sTags) {
		tags = append(tags, opentracing.Tag{Key: k, Value: v})
	}
	return tags
}

func (js *JaegerSink) Stop() {

	if js.closer != nil {
		if err := js.closer.Close(); err != nil {
			js.logger.Error(err)
		}
	}
}

func newJaegerTracer(options JaegerOptions, logger common.Logger, stdout *Stdout) (opentracing.Tracer, io.Closer) {

	disabled := utils.IsEmpty(options.AgentHost) && utils.IsEmpty(options.Endpoint)
	if disabled {
		return nil, nil
	}

	tags := parseJaegerTags(options.Tags)
	tags = append(tags, opentracing.Tag{
		Key:   "version",
		Value: options.Version,
	})

	cfg := &jaegerConfig.Configuration{

		ServiceName: options.ServiceName,
		Disabled:    disabled,
		Tags:        tags,

		// Sampling already happened in the engine, report every replayed span
		Sampler: &jaegerConfig.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},

		Reporter: &jaegerConfig.ReporterConfig{
			LogSpans:            true,
			User:                options.User,
			Password:            options.Password,
			LocalAgentHostPort:  fmt.Sprintf("%s:%d", options.AgentHost, options.AgentPort),
			CollectorEndpoint:   options.Endpoint,
			BufferFlushInterval: time.Duration(options.BufferFlushInterval) * time.Second,
			QueueSize:           options.QueueSize,
		},
	}

	tracer, closer, err := cfg.NewTracer(jaegerConfig.Logger(&JaegerLogger{logger: logger}))
	if err != nil {
		stdout.Error(err)
		return nil, nil
	}
	return tracer, closer
}

func NewJaegerSink(options JaegerOptions, logger common.Logger, stdout *Stdout) *JaegerSink {

	if logger == nil {
		logger = stdout
	}

	tracer, closer := newJaegerTracer(options, logger, stdout)
	if tracer == nil {
		stdout.Debug("Jaeger sink is disabled.")
		return nil
	}

	logger.Info("Jaeger sink is up...")

	return &JaegerSink{
		options: options,
		tracer:  tracer,
		closer:  closer,
		logger:  logger,
	}
}
