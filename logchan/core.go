package logchan

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// core is a zapcore.Core that queues entries on a Channel instead of
// encoding them.
type core struct {
	zapcore.LevelEnabler
	ch     *Channel
	fields []zapcore.Field
}

// NewCore returns a zapcore.Core that queues every enabled entry on ch, so
// code running on worker goroutines can log through an ordinary
// *zap.Logger:
//
//	lc := logchan.New(logchan.ZapSink(mainLogger))
//	workerLog := zap.New(logchan.NewCore(lc, zapcore.DebugLevel))
//
// Field values are captured when the entry is logged, on the logging
// goroutine; lazy fields such as zap.Stringer or zap.Object are evaluated
// then, not at drain time. Entries logged after ch is closed are dropped.
func NewCore(ch *Channel, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{LevelEnabler: enab, ch: ch}
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	clone := &core{
		LevelEnabler: c.LevelEnabler,
		ch:           c.ch,
		fields:       make([]zapcore.Field, 0, len(c.fields)+len(fields)),
	}
	clone.fields = append(clone.fields, c.fields...)
	clone.fields = append(clone.fields, snapshot(fields)...)
	return clone
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	own := snapshot(fields)
	all := make([]zapcore.Field, 0, len(c.fields)+len(own))
	all = append(all, c.fields...)
	all = append(all, own...)

	c.ch.Log(Record{
		Time:       ent.Time,
		Level:      ent.Level,
		LoggerName: ent.LoggerName,
		Message:    ent.Message,
		Fields:     all,
	})
	return nil
}

// Sync is a no-op; records are flushed by Channel.Drain.
func (c *core) Sync() error { return nil }

// snapshot encodes fields into plain values so nothing the caller still
// owns is read after the log call returns. Keys keep their logged order;
// keys introduced by inline objects follow, sorted.
func snapshot(fields []zapcore.Field) []zapcore.Field {
	if len(fields) == 0 {
		return nil
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}

	out := make([]zapcore.Field, 0, len(enc.Fields))
	used := make(map[string]bool, len(enc.Fields))
	for _, f := range fields {
		v, ok := enc.Fields[f.Key]
		if !ok || used[f.Key] {
			continue
		}
		used[f.Key] = true
		out = append(out, zap.Any(f.Key, v))
	}

	var rest []string
	for k := range enc.Fields {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		out = append(out, zap.Any(k, enc.Fields[k]))
	}
	return out
}
