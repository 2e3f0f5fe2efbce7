package common

// Labels attach dimensions to a metric, like the sink a record went to.
type Labels = map[string]string

// Counter is a monotonically increasing metric. Methods return the
// counter so increments chain.
type Counter interface {
	Inc() Counter
	Add(value int) Counter
}

// Gauge is a metric that holds the last value set.
type Gauge interface {
	Set(value float64) Gauge
}

// Meter creates metrics for a backend. Prefixes are joined into the
// metric name the way the backend expects.
type Meter interface {
	Counter(name, description string, labels Labels, prefixes ...string) Counter
	Gauge(name, description string, labels Labels, prefixes ...string) Gauge
	Stop()
}
