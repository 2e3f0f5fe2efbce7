package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devopsext/tracing/common"
	"github.com/devopsext/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/propagation"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	"go.opentelemetry.io/otel/sdk/metric/selector/simple"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

type OpentelemetryOptions struct {
	ServiceName string
	Version     string
	Environment string
	Attributes  string
}

type OpentelemetrySinkOptions struct {
	OpentelemetryOptions
	AgentHost string
	AgentPort int
}

type OpentelemetryMeterOptions struct {
	OpentelemetryOptions
	AgentHost     string
	AgentPort     int
	Prefix        string
	CollectPeriod int64
}

// OpentelemetrySink replays finished transactions through the OTLP exporter.
// The engine's trace id is carried over, so replayed spans join the same
// trace as any downstream service that honored the propagation header.
type OpentelemetrySink struct {
	options    OpentelemetrySinkOptions
	logger     common.Logger
	tracer     trace.Tracer
	provider   *sdktrace.TracerProvider
	attributes []attribute.KeyValue
}

type OpentelemetryCounter struct {
	meter      *OpentelemetryMeter
	counter    metric.Int64Counter
	attributes []attribute.KeyValue
}

type OpentelemetryGauge struct {
	meter      *OpentelemetryMeter
	value      float64
	attributes []attribute.KeyValue
}

type OpentelemetryMeter struct {
	options    OpentelemetryMeterOptions
	logger     common.Logger
	meter      *metric.Meter
	controller *controller.Controller
	exporter   *otlpmetric.Exporter
}

func parseOpentelemetryAttributes(sAttributes string) []attribute.KeyValue {

	attributes := make([]attribute.KeyValue, 0)
	for k, v := range common.GetKeyValues(sAttributes) {
		attributes = append(attributes, attribute.String(k, v))
	}
	return attributes
}

func opentelemetryResource(ctx context.Context, options OpentelemetryOptions) (*resource.Resource, error) {

	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(options.ServiceName),
			semconv.ServiceVersionKey.String(options.Version),
			semconv.DeploymentEnvironmentKey.String(options.Environment),
		),
	)
}

func (osk *OpentelemetrySink) spanAttributes(record common.SpanRecord) []attribute.KeyValue {

	attributes := []attribute.KeyValue{
		attribute.String("span_id", record.SpanID),
		attribute.String("parent_span_id", record.ParentSpanID),
		attribute.String("status", string(record.Status)),
	}
	if !utils.IsEmpty(record.Description) {
		attributes = append(attributes, attribute.String("description", record.Description))
	}
	for k, v := range record.Tags {
		attributes = append(attributes, attribute.String(k, v))
	}
	for k, v := range record.Data {
		attributes = append(attributes, attribute.String(k, fmt.Sprintf("%v", v)))
	}
	return attributes
}

func setOpentelemetryStatus(span trace.Span, status common.SpanStatus) {

	if spanFailed(status) {
		span.SetStatus(codes.Error, string(status))
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

func (osk *OpentelemetrySink) Submit(record *common.TransactionRecord) {

	ctx := context.Background()

	traceID, err := trace.TraceIDFromHex(record.Root.TraceID)
	if err == nil {

		spanID, err := trace.SpanIDFromHex(record.Root.SpanID)
		if err == nil {

			remote := trace.NewSpanContext(trace.SpanContextConfig{
				TraceID:    traceID,
				SpanID:     spanID,
				TraceFlags: trace.FlagsSampled,
				Remote:     true,
			})
			ctx = trace.ContextWithSpanContext(ctx, remote)
		}
	}

	opts := []trace.SpanStartOption{
		trace.WithTimestamp(record.Root.StartTime),
		trace.WithAttributes(osk.attributes...),
		trace.WithAttributes(osk.spanAttributes(record.Root)...),
		trace.WithAttributes(
			attribute.String("transaction", record.Name),
			attribute.String("event_id", record.EventID),
		),
	}

	ctx, root := osk.tracer.Start(ctx, record.Root.Operation, opts...)
	setOpentelemetryStatus(root, record.Root.Status)

	for _, s := range record.Spans {

		_, span := osk.tracer.Start(ctx, s.Operation,
			trace.WithTimestamp(s.StartTime),
			trace.WithAttributes(osk.attributes...),
			trace.WithAttributes(osk.spanAttributes(s)...),
		)
		setOpentelemetryStatus(span, s.Status)
		span.End(trace.WithTimestamp(s.EndTime))
	}

	root.End(trace.WithTimestamp(record.Root.EndTime))
}

func (osk *OpentelemetrySink) Stop() {

	if osk.provider != nil {
		if err := osk.provider.Shutdown(context.Background()); err != nil {
			osk.logger.Error(err)
		}
	}
}

func startOpentelemetryTracer(options OpentelemetrySinkOptions, logger common.Logger, stdout *Stdout) (trace.Tracer, *sdktrace.TracerProvider) {

	disabled := utils.IsEmpty(options.AgentHost)
	if disabled {
		return nil, nil
	}

	ctx := context.Background()

	res, err := opentelemetryResource(ctx, options.OpentelemetryOptions)
	if err != nil {
		stdout.Error(err)
		return nil, nil
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(fmt.Sprintf("%s:%d", options.AgentHost, options.AgentPort)),
	)
	if err != nil {
		stdout.Error(err)
		return nil, nil
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)
	otel.SetTracerProvider(tracerProvider)

	otel.SetTextMapPropagator(propagation.TraceContext{})

	_, file, _ := common.GetCallerInfo(1)
	tracer := otel.Tracer(file)

	return tracer, tracerProvider
}

func NewOpentelemetrySink(options OpentelemetrySinkOptions, logger common.Logger, stdout *Stdout) *OpentelemetrySink {

	if logger == nil {
		logger = stdout
	}

	tracer, provider := startOpentelemetryTracer(options, logger, stdout)
	if tracer == nil {
		stdout.Debug("Opentelemetry sink is disabled.")
		return nil
	}

	logger.Info("Opentelemetry sink is up...")

	return &OpentelemetrySink{
		options:    options,
		logger:     logger,
		tracer:     tracer,
		provider:   provider,
		attributes: parseOpentelemetryAttributes(options.Attributes),
	}
}

func (otm *OpentelemetryMeter) metricName(name string, prefixes ...string) string {

	var names []string

	if !utils.IsEmpty(otm.options.Prefix) {
		names = append(names, otm.options.Prefix)
	}
	names = append(names, prefixes...)
	names = append(names, name)
	return strings.Join(names, ".")
}

func opentelemetryLabelAttributes(labels common.Labels) []attribute.KeyValue {

	var attributes []attribute.KeyValue
	for k, v := range labels {
		attributes = append(attributes, attribute.String(k, v))
	}
	return attributes
}

func (otc *OpentelemetryCounter) Inc() common.Counter {
	return otc.Add(1)
}

func (otc *OpentelemetryCounter) Add(value int) common.Counter {

	otc.counter.Add(context.Background(), int64(value), otc.attributes...)
	return otc
}

func (otg *OpentelemetryGauge) Set(value float64) common.Gauge {

	otg.value = value
	return otg
}

func (otm *OpentelemetryMeter) Counter(name, description string, labels common.Labels, prefixes ...string) common.Counter {

	counter := metric.Must(*otm.meter).NewInt64Counter(otm.metricName(name, prefixes...),
		metric.WithDescription(description))

	return &OpentelemetryCounter{
		meter:      otm,
		counter:    counter,
		attributes: opentelemetryLabelAttributes(labels),
	}
}

func (otm *OpentelemetryMeter) Gauge(name, description string, labels common.Labels, prefixes ...string) common.Gauge {

	gauge := &OpentelemetryGauge{
		meter:      otm,
		attributes: opentelemetryLabelAttributes(labels),
	}

	metric.Must(*otm.meter).NewFloat64GaugeObserver(otm.metricName(name, prefixes...),
		func(ctx context.Context, result metric.Float64ObserverResult) {
			result.Observe(gauge.value, gauge.attributes...)
		},
		metric.WithDescription(description))

	return gauge
}

func (otm *OpentelemetryMeter) Stop() {

	ctx := context.Background()
	if otm.controller != nil {
		if err := otm.controller.Stop(ctx); err != nil {
			otm.logger.Error(err)
		}
	}
	if otm.exporter != nil {
		if err := otm.exporter.Shutdown(ctx); err != nil {
			otm.logger.Error(err)
		}
	}
}

func startOpentelemetryMeter(options OpentelemetryMeterOptions, stdout *Stdout) (*metric.Meter, *controller.Controller, *otlpmetric.Exporter) {

	if utils.IsEmpty(options.AgentHost) {
		return nil, nil, nil
	}

	ctx := context.Background()

	res, err := opentelemetryResource(ctx, options.OpentelemetryOptions)
	if err != nil {
		stdout.Error(err)
		return nil, nil, nil
	}

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithEndpoint(fmt.Sprintf("%s:%d", options.AgentHost, options.AgentPort)),
	)
	if err != nil {
		stdout.Error(err)
		return nil, nil, nil
	}

	collectPeriod := options.CollectPeriod
	if collectPeriod == 0 {
		collectPeriod = 1000
	}

	cont := controller.New(
		processor.New(
			simple.NewWithExactDistribution(),
			metricExporter,
		),
		controller.WithCollectPeriod(time.Duration(collectPeriod)*time.Millisecond),
		controller.WithExporter(metricExporter),
		controller.WithResource(res),
	)

	if err := cont.Start(ctx); err != nil {
		stdout.Error(err)
		return nil, nil, nil
	}
	global.SetMeterProvider(cont.MeterProvider())

	_, file, _ := common.GetCallerInfo(1)
	meter := global.Meter(file)

	return &meter, cont, metricExporter
}

func NewOpentelemetryMeter(options OpentelemetryMeterOptions, logger common.Logger, stdout *Stdout) *OpentelemetryMeter {

	if logger == nil {
		logger = stdout
	}

	meter, cont, exporter := startOpentelemetryMeter(options, stdout)
	if meter == nil {
		stdout.Debug("Opentelemetry meter is disabled.")
		return nil
	}

	logger.Info("Opentelemetry meter is up...")

	return &OpentelemetryMeter{
		options:    options,
		logger:     logger,
		meter:      meter,
		controller: cont,
		exporter:   exporter,
	}
}
