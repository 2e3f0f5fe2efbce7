package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/devopsext/tracing/common"
	"github.com/devopsext/tracing/provider"
	"github.com/spf13/cobra"
)

var VERSION = "unknown"

var logs = common.NewLogs()
var sinks = common.NewSinks()
var metrics = common.NewMetrics()
var stdout *provider.Stdout
var mainWG sync.WaitGroup

type RootOptions struct {
	Logs    []string
	Metrics []string
	Sinks   []string
}

var rootOptions = RootOptions{

	Logs:    []string{"stdout"},
	Metrics: []string{},
	Sinks:   []string{"stdout"},
}

var transactionOptions = struct {
	Name            string
	Operation       string
	SampleRate      float64
	WaitForChildren bool
	AutoFinishAfter int
}{
	Name:            "demo",
	Operation:       "demo.run",
	SampleRate:      1,
	WaitForChildren: true,
	AutoFinishAfter: 0,
}

var stdoutOptions = provider.StdoutOptions{

	Format:          "text",
	Level:           "info",
	Template:        "{{.file}} {{.msg}}",
	TimestampFormat: time.RFC3339Nano,
	TextColors:      true,
}

var prometheusOptions = provider.PrometheusOptions{

	URL:    "/metrics",
	Listen: "",
	Prefix: "tracing",
}

var jaegerOptions = provider.JaegerOptions{
	ServiceName:         "tracing",
	AgentHost:           "",
	AgentPort:           6831,
	Endpoint:            "",
	User:                "",
	Password:            "",
	BufferFlushInterval: 0,
	QueueSize:           0,
	Tags:                "",
}

var opentelemetryOptions = provider.OpentelemetryOptions{
	ServiceName: "tracing",
	Environment: "none",
	Attributes:  "",
}

var opentelemetrySinkOptions = provider.OpentelemetrySinkOptions{
	AgentHost: "",
	AgentPort: 4317,
}

var opentelemetryMeterOptions = provider.OpentelemetryMeterOptions{
	AgentHost:     "",
	AgentPort:     4317,
	Prefix:        "tracing",
	CollectPeriod: 1000,
}

var datadogOptions = provider.DataDogOptions{
	ServiceName: "tracing",
	Environment: "none",
	Tags:        "",
}

var datadogSinkOptions = provider.DataDogSinkOptions{
	AgentHost: "",
	AgentPort: 8126,
}

var datadogMeterOptions = provider.DataDogMeterOptions{
	AgentHost: "",
	AgentPort: 8125,
	Prefix:    "tracing",
}

var newrelicOptions = provider.NewRelicOptions{
	ApiKey:      "",
	ServiceName: "tracing",
	Environment: "none",
	Attributes:  "",
}

var newrelicSinkOptions = provider.NewRelicSinkOptions{
	Endpoint: "",
}

var newrelicMeterOptions = provider.NewRelicMeterOptions{
	Endpoint: "",
	Prefix:   "tracing",
}

var grafanaOptions = provider.GrafanaOptions{
	URL:      "",
	ApiKey:   "admin:admin",
	Tags:     "",
	Timeout:  5,
	Endpoint: "/api/annotations",
}

var webhookOptions = provider.WebhookOptions{
	URL:     "",
	Tags:    "",
	Timeout: 5,
}

func interceptSyscall() {

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-c
		logs.Info("Exiting...")
		os.Exit(1)
	}()
}

func sinkEnabled(name string) bool {
	return common.Contains(rootOptions.Sinks, name)
}

func meterEnabled(name string) bool {
	return common.Contains(rootOptions.Metrics, name)
}

func runDemo() {

	tx := common.NewTransaction(common.TransactionOptions{
		Name:            transactionOptions.Name,
		Operation:       transactionOptions.Operation,
		SampleRate:      transactionOptions.SampleRate,
		WaitForChildren: transactionOptions.WaitForChildren,
		AutoFinishAfter: time.Duration(transactionOptions.AutoFinishAfter) * time.Second,
	}, common.NewMeasuredSink(sinks, metrics), logs)

	logs.SpanInfo(tx, "Transaction %s started...", transactionOptions.Name)

	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {

		span := tx.StartChild("demo.step", fmt.Sprintf("step %d", i))
		logs.SpanDebug(span, "Step %d started...", i)

		wg.Add(1)
		go func(i int, span common.Span) {

			defer wg.Done()
			time.Sleep(time.Duration(50*i) * time.Millisecond)

			span.SetTag("step", fmt.Sprintf("%d", i))
			if i%2 == 0 {
				span.Finish()
			} else {
				span.FinishWithStatus(common.StatusInternalError)
			}
		}(i, span)
	}

	wg.Wait()
	tx.Finish()
	<-tx.Done()

	logs.Info("Transaction %s is submitted.", transactionOptions.Name)
}

func Execute() {

	rootCmd := &cobra.Command{
		Use:   "tracing",
		Short: "Tracing",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {

			stdoutOptions.Version = VERSION
			stdout = provider.NewStdout(stdoutOptions)
			stdout.SetCallerOffset(2)
			if common.Contains(rootOptions.Logs, "stdout") {
				logs.Register(stdout)
			}

			logs.Info("Booting...")

			jaegerOptions.Version = VERSION
			opentelemetryOptions.Version = VERSION
			datadogOptions.Version = VERSION
			newrelicOptions.Version = VERSION

			// Metrics

			if prometheus := provider.NewPrometheusMeter(prometheusOptions, logs, stdout); meterEnabled("prometheus") && prometheus != nil {
				prometheus.StartInWaitGroup(&mainWG)
				metrics.Register(prometheus)
			}

			datadogMeterOptions.DataDogOptions = datadogOptions
			if datadogMeter := provider.NewDataDogMeter(datadogMeterOptions, logs, stdout); meterEnabled("datadog") && datadogMeter != nil {
				metrics.Register(datadogMeter)
			}

			newrelicMeterOptions.NewRelicOptions = newrelicOptions
			if newrelicMeter := provider.NewNewRelicMeter(newrelicMeterOptions, logs, stdout); meterEnabled("newrelic") && newrelicMeter != nil {
				metrics.Register(newrelicMeter)
			}

			opentelemetryMeterOptions.OpentelemetryOptions = opentelemetryOptions
			if opentelemetryMeter := provider.NewOpentelemetryMeter(opentelemetryMeterOptions, logs, stdout); meterEnabled("opentelemetry") && opentelemetryMeter != nil {
				metrics.Register(opentelemetryMeter)
			}

			// Sinks

			if stdoutSink := provider.NewStdoutSink(stdout); sinkEnabled("stdout") && stdoutSink != nil {
				sinks.Register(stdoutSink)
			}

			if jaeger := provider.NewJaegerSink(jaegerOptions, logs, stdout); sinkEnabled("jaeger") && jaeger != nil {
				sinks.Register(jaeger)
			}

			opentelemetrySinkOptions.OpentelemetryOptions = opentelemetryOptions
			if opentelemetry := provider.NewOpentelemetrySink(opentelemetrySinkOptions, logs, stdout); sinkEnabled("opentelemetry") && opentelemetry != nil {
				sinks.Register(opentelemetry)
			}

			datadogSinkOptions.DataDogOptions = datadogOptions
			if datadog := provider.NewDataDogSink(datadogSinkOptions, logs, stdout); sinkEnabled("datadog") && datadog != nil {
				sinks.Register(datadog)
			}

			newrelicSinkOptions.NewRelicOptions = newrelicOptions
			if newrelic := provider.NewNewRelicSink(newrelicSinkOptions, logs, stdout); sinkEnabled("newrelic") && newrelic != nil {
				sinks.Register(newrelic)
			}

			if grafana := provider.NewGrafanaSink(grafanaOptions, logs, stdout); sinkEnabled("grafana") && grafana != nil {
				sinks.Register(grafana)
			}

			if webhook := provider.NewWebhookSink(webhookOptions, logs, stdout); sinkEnabled("webhook") && webhook != nil {
				sinks.Register(webhook)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {

			runDemo()
			mainWG.Wait()
		},
	}

	flags := rootCmd.PersistentFlags()

	flags.StringSliceVar(&rootOptions.Logs, "logs", rootOptions.Logs, "Log providers: stdout")
	flags.StringSliceVar(&rootOptions.Metrics, "metrics", rootOptions.Metrics, "Metric providers: prometheus, datadog, newrelic, opentelemetry")
	flags.StringSliceVar(&rootOptions.Sinks, "sinks", rootOptions.Sinks, "Transaction sinks: stdout, jaeger, opentelemetry, datadog, newrelic, grafana, webhook")

	flags.StringVar(&transactionOptions.Name, "transaction-name", transactionOptions.Name, "Transaction name")
	flags.StringVar(&transactionOptions.Operation, "transaction-operation", transactionOptions.Operation, "Transaction operation")
	flags.Float64Var(&transactionOptions.SampleRate, "transaction-sample-rate", transactionOptions.SampleRate, "Transaction sample rate: 0..1")
	flags.BoolVar(&transactionOptions.WaitForChildren, "transaction-wait-for-children", transactionOptions.WaitForChildren, "Transaction waits for children before submission")
	flags.IntVar(&transactionOptions.AutoFinishAfter, "transaction-auto-finish-after", transactionOptions.AutoFinishAfter, "Transaction auto finish timeout in seconds")

	flags.StringVar(&stdoutOptions.Format, "stdout-format", stdoutOptions.Format, "Stdout format: json, text, template")
	flags.StringVar(&stdoutOptions.Level, "stdout-level", stdoutOptions.Level, "Stdout level: info, warn, error, debug, panic")
	flags.StringVar(&stdoutOptions.Template, "stdout-template", stdoutOptions.Template, "Stdout template")
	flags.StringVar(&stdoutOptions.TimestampFormat, "stdout-timestamp-format", stdoutOptions.TimestampFormat, "Stdout timestamp format")
	flags.BoolVar(&stdoutOptions.TextColors, "stdout-text-colors", stdoutOptions.TextColors, "Stdout text colors")

	flags.StringVar(&prometheusOptions.URL, "prometheus-url", prometheusOptions.URL, "Prometheus endpoint url")
	flags.StringVar(&prometheusOptions.Listen, "prometheus-listen", prometheusOptions.Listen, "Prometheus listen")
	flags.StringVar(&prometheusOptions.Prefix, "prometheus-prefix", prometheusOptions.Prefix, "Prometheus prefix")

	flags.StringVar(&jaegerOptions.ServiceName, "jaeger-service-name", jaegerOptions.ServiceName, "Jaeger service name")
	flags.StringVar(&jaegerOptions.AgentHost, "jaeger-agent-host", jaegerOptions.AgentHost, "Jaeger agent host")
	flags.IntVar(&jaegerOptions.AgentPort, "jaeger-agent-port", jaegerOptions.AgentPort, "Jaeger agent port")
	flags.StringVar(&jaegerOptions.Endpoint, "jaeger-endpoint", jaegerOptions.Endpoint, "Jaeger endpoint")
	flags.StringVar(&jaegerOptions.User, "jaeger-user", jaegerOptions.User, "Jaeger user")
	flags.StringVar(&jaegerOptions.Password, "jaeger-password", jaegerOptions.Password, "Jaeger password")
	flags.IntVar(&jaegerOptions.BufferFlushInterval, "jaeger-buffer-flush-interval", jaegerOptions.BufferFlushInterval, "Jaeger buffer flush interval")
	flags.IntVar(&jaegerOptions.QueueSize, "jaeger-queue-size", jaegerOptions.QueueSize, "Jaeger queue size")
	flags.StringVar(&jaegerOptions.Tags, "jaeger-tags", jaegerOptions.Tags, "Jaeger tags, comma separated list of name=value")

	flags.StringVar(&opentelemetryOptions.ServiceName, "opentelemetry-service-name", opentelemetryOptions.ServiceName, "Opentelemetry service name")
	flags.StringVar(&opentelemetryOptions.Environment, "opentelemetry-environment", opentelemetryOptions.Environment, "Opentelemetry environment")
	flags.StringVar(&opentelemetryOptions.Attributes, "opentelemetry-attributes", opentelemetryOptions.Attributes, "Opentelemetry attributes")

	flags.StringVar(&opentelemetrySinkOptions.AgentHost, "opentelemetry-sink-agent-host", opentelemetrySinkOptions.AgentHost, "Opentelemetry sink agent host")
	flags.IntVar(&opentelemetrySinkOptions.AgentPort, "opentelemetry-sink-agent-port", opentelemetrySinkOptions.AgentPort, "Opentelemetry sink agent port")

	flags.StringVar(&opentelemetryMeterOptions.AgentHost, "opentelemetry-meter-agent-host", opentelemetryMeterOptions.AgentHost, "Opentelemetry meter agent host")
	flags.IntVar(&opentelemetryMeterOptions.AgentPort, "opentelemetry-meter-agent-port", opentelemetryMeterOptions.AgentPort, "Opentelemetry meter agent port")
	flags.StringVar(&opentelemetryMeterOptions.Prefix, "opentelemetry-meter-prefix", opentelemetryMeterOptions.Prefix, "Opentelemetry meter prefix")
	flags.Int64Var(&opentelemetryMeterOptions.CollectPeriod, "opentelemetry-meter-collect-period", opentelemetryMeterOptions.CollectPeriod, "Opentelemetry meter collect period in milliseconds")

	flags.StringVar(&datadogOptions.ServiceName, "datadog-service-name", datadogOptions.ServiceName, "DataDog service name")
	flags.StringVar(&datadogOptions.Environment, "datadog-environment", datadogOptions.Environment, "DataDog environment")
	flags.StringVar(&datadogOptions.Tags, "datadog-tags", datadogOptions.Tags, "DataDog tags")

	flags.StringVar(&datadogSinkOptions.AgentHost, "datadog-sink-agent-host", datadogSinkOptions.AgentHost, "DataDog sink agent host")
	flags.IntVar(&datadogSinkOptions.AgentPort, "datadog-sink-agent-port", datadogSinkOptions.AgentPort, "DataDog sink agent port")

	flags.StringVar(&datadogMeterOptions.AgentHost, "datadog-meter-agent-host", datadogMeterOptions.AgentHost, "DataDog meter agent host")
	flags.IntVar(&datadogMeterOptions.AgentPort, "datadog-meter-agent-port", datadogMeterOptions.AgentPort, "DataDog meter agent port")
	flags.StringVar(&datadogMeterOptions.Prefix, "datadog-meter-prefix", datadogMeterOptions.Prefix, "DataDog meter prefix")

	flags.StringVar(&newrelicOptions.ApiKey, "newrelic-api-key", newrelicOptions.ApiKey, "NewRelic api key")
	flags.StringVar(&newrelicOptions.ServiceName, "newrelic-service-name", newrelicOptions.ServiceName, "NewRelic service name")
	flags.StringVar(&newrelicOptions.Environment, "newrelic-environment", newrelicOptions.Environment, "NewRelic environment")
	flags.StringVar(&newrelicOptions.Attributes, "newrelic-attributes", newrelicOptions.Attributes, "NewRelic attributes")

	flags.StringVar(&newrelicSinkOptions.Endpoint, "newrelic-sink-endpoint", newrelicSinkOptions.Endpoint, "NewRelic sink endpoint")

	flags.StringVar(&newrelicMeterOptions.Endpoint, "newrelic-meter-endpoint", newrelicMeterOptions.Endpoint, "NewRelic meter endpoint")
	flags.StringVar(&newrelicMeterOptions.Prefix, "newrelic-meter-prefix", newrelicMeterOptions.Prefix, "NewRelic meter prefix")

	flags.StringVar(&grafanaOptions.URL, "grafana-url", grafanaOptions.URL, "Grafana url")
	flags.StringVar(&grafanaOptions.ApiKey, "grafana-api-key", grafanaOptions.ApiKey, "Grafana api key")
	flags.StringVar(&grafanaOptions.Tags, "grafana-tags", grafanaOptions.Tags, "Grafana tags")
	flags.IntVar(&grafanaOptions.Timeout, "grafana-timeout", grafanaOptions.Timeout, "Grafana timeout in seconds")
	flags.StringVar(&grafanaOptions.Endpoint, "grafana-endpoint", grafanaOptions.Endpoint, "Grafana annotations endpoint")

	flags.StringVar(&webhookOptions.URL, "webhook-url", webhookOptions.URL, "Webhook url")
	flags.StringVar(&webhookOptions.Tags, "webhook-tags", webhookOptions.Tags, "Webhook tags")
	flags.IntVar(&webhookOptions.Timeout, "webhook-timeout", webhookOptions.Timeout, "Webhook timeout in seconds")

	interceptSyscall()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(VERSION)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		logs.Error(err)
		os.Exit(1)
	}
}
