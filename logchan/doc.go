// Package logchan hands log records from worker goroutines to one host
// goroutine that outputs them in timestamp order.
//
// Producers call [Channel.Log] (or log through a *zap.Logger built on
// [NewCore]). The host calls [Channel.Drain] once per tick of its own loop
// and once more at shutdown; Drain passes each record to the [Sink] on the
// host goroutine. There is no hidden ticker: if the host never drains,
// nothing is output.
package logchan
