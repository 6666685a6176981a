package logchan

import (
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/baxromumarov/threadkit/chanx"
)

// Record is one log message captured on an arbitrary goroutine.
type Record struct {
	Time       time.Time
	Level      zapcore.Level
	LoggerName string
	Message    string
	Fields     []zapcore.Field
}

// Sink outputs one drained record. It is called synchronously on the
// goroutine that calls [Channel.Drain].
type Sink func(Record)

// Channel moves records from any number of producer goroutines to the
// single goroutine that drains it. Nothing is output until the host calls
// [Channel.Drain], typically once per tick of its own loop and once more
// at shutdown.
type Channel struct {
	ch   *chanx.Channel[Record]
	sink Sink
}

// New creates a Channel that outputs drained records to sink.
// It panics if sink is nil.
func New(sink Sink) *Channel {
	if sink == nil {
		panic("logchan: nil sink")
	}
	return &Channel{
		ch:   chanx.New[Record](),
		sink: sink,
	}
}

// Log queues r for the next drain. A zero r.Time is stamped with the
// current time. Log returns false if the channel has been closed.
func (c *Channel) Log(r Record) bool {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	return c.ch.Send(r)
}

// Drain outputs every queued record, oldest timestamp first, and returns
// how many were output. Records with equal timestamps keep their queue
// order. Records logged while Drain runs are left for the next call.
func (c *Channel) Drain() int {
	recs := c.ch.Drain()
	if len(recs) == 0 {
		return 0
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Time.Before(recs[j].Time)
	})

	for _, r := range recs {
		c.sink(r)
	}
	return len(recs)
}

// Close stops accepting records. Records already queued are still output
// by the next [Channel.Drain].
func (c *Channel) Close() {
	c.ch.Close()
}

// Pending returns the number of queued records. The value may be stale.
func (c *Channel) Pending() int {
	return c.ch.Len()
}

// ZapSink returns a Sink that writes records to l's core, keeping each
// record's original timestamp and level. Records below l's level are
// dropped.
func ZapSink(l *zap.Logger) Sink {
	core := l.Core()
	return func(r Record) {
		ent := zapcore.Entry{
			Level:      r.Level,
			Time:       r.Time,
			LoggerName: r.LoggerName,
			Message:    r.Message,
		}
		if ce := core.Check(ent, nil); ce != nil {
			ce.Write(r.Fields...)
		}
	}
}
