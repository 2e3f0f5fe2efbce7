package common

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/uber/jaeger-client-go/utils"
)

// TraceID is a 128-bit random token shared by every span of one trace.
type TraceID [16]byte

// SpanID is a 64-bit random token identifying a single span. The zero value
// means "no span", which is how a missing parent is represented.
type SpanID [8]byte

var randomPool = func() *sync.Pool {
	seedGenerator := utils.NewRand(time.Now().UnixNano())
	return &sync.Pool{
		New: func() interface{} {
			return rand.NewSource(seedGenerator.Int63())
		},
	}
}()

func randomUint64() uint64 {
	generator := randomPool.Get().(rand.Source)
	number := uint64(generator.Int63())
	randomPool.Put(generator)
	return number
}

func NewTraceID() TraceID {

	var id TraceID
	for id.IsZero() {
		binary.BigEndian.PutUint64(id[:8], randomUint64())
		binary.BigEndian.PutUint64(id[8:], randomUint64())
	}
	return id
}

func NewSpanID() SpanID {

	var id SpanID
	for id.IsZero() {
		binary.BigEndian.PutUint64(id[:], randomUint64())
	}
	return id
}

func (t TraceID) IsZero() bool {
	return t == TraceID{}
}

func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

func (s SpanID) IsZero() bool {
	return s == SpanID{}
}

func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

func ParseTraceID(s string) (TraceID, error) {

	var id TraceID
	if len(s) != 2*len(id) {
		return id, errors.New("wrong trace ID length")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}

func ParseSpanID(s string) (SpanID, error) {

	var id SpanID
	if len(s) != 2*len(id) {
		return id, errors.New("wrong span ID length")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	copy(id[:], b)
	return id, nil
}
