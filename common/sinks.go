package common

// Sinks fans a finished transaction out to every registered sink. It is a
// Sink itself, so a transaction does not care whether one backend or many
// are configured.
type Sinks struct {
	sinks []Sink
}

func (ss *Sinks) Submit(record *TransactionRecord) {
	for _, s := range ss.sinks {
		s.Submit(record)
	}
}

func (ss *Sinks) Register(s Sink) {
	if s != nil {
		ss.sinks = append(ss.sinks, s)
	}
}

func NewSinks() *Sinks {
	return &Sinks{}
}
