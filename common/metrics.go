package common

// Metrics fans metric registrations out to every registered meter, the same
// way Logs and Sinks fan their calls out.

type MetricsCounter struct {
	counters map[Meter]Counter
	metrics  *Metrics
}

type MetricsGauge struct {
	gauges  map[Meter]Gauge
	metrics *Metrics
}

type Metrics struct {
	meters []Meter
}

func (mc *MetricsCounter) Inc() Counter {

	for _, c := range mc.counters {
		c.Inc()
	}
	return mc
}

func (mc *MetricsCounter) Add(value int) Counter {

	for _, c := range mc.counters {
		c.Add(value)
	}
	return mc
}

func (mg *MetricsGauge) Set(value float64) Gauge {

	for _, g := range mg.gauges {
		g.Set(value)
	}
	return mg
}

func (ms *Metrics) Counter(name, description string, labels Labels, prefixes ...string) Counter {

	counter := MetricsCounter{
		metrics:  ms,
		counters: make(map[Meter]Counter),
	}

	for _, m := range ms.meters {

		c := m.Counter(name, description, labels, prefixes...)
		if c != nil {
			counter.counters[m] = c
		}
	}
	return &counter
}

func (ms *Metrics) Gauge(name, description string, labels Labels, prefixes ...string) Gauge {

	gauge := MetricsGauge{
		metrics: ms,
		gauges:  make(map[Meter]Gauge),
	}

	for _, m := range ms.meters {

		g := m.Gauge(name, description, labels, prefixes...)
		if g != nil {
			gauge.gauges[m] = g
		}
	}
	return &gauge
}

func (ms *Metrics) Stop() {
	for _, m := range ms.meters {
		m.Stop()
	}
}

func (ms *Metrics) Register(m Meter) {
	if m != nil {
		ms.meters = append(ms.meters, m)
	}
}

func NewMetrics() *Metrics {
	return &Metrics{}
}
