// Package chanx provides a closable, goroutine-safe FIFO channel.
//
// Go channels are powerful but have sharp edges: sends to closed channels
// panic, double closes panic, and bounded buffers force producers to block.
// [Channel] trades those for plain boolean results:
//
//   - [Channel.Send] never blocks and reports false once the channel is
//     closed.
//   - [Channel.Receive] blocks until a value arrives or the channel is
//     closed.
//   - [Channel.TryReceive] and [Channel.TryReceiveTimeout] poll without
//     blocking, or with a bounded wait.
//   - [Channel.ReceiveContext] ties the wait to a [context.Context].
//   - [Channel.Drain] takes every queued value at once, for consumers that
//     flush on an external tick. It is the only way to reach values left
//     in a closed channel.
//   - [Channel.Close] is idempotent, wakes every waiter and makes every
//     later receive fail.
//
// [Channel.Len] and [Channel.Empty] are snapshots for heuristics only.
package chanx
