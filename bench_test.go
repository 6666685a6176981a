package threadkit_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/baxromumarov/threadkit"
)

// BenchmarkThreadStartJoin measures one full lifecycle of a thread that
// runs once, compared to a raw goroutine + WaitGroup.
func BenchmarkThreadStartJoin(b *testing.B) {
	b.Run("threadkit", func(b *testing.B) {
		b.ReportAllocs()
		for range b.N {
			t := threadkit.New(func(ctx context.Context) error { return nil },
				threadkit.WithLogger(zap.NewNop()))
			t.Start()
			<-t.Done()
			t.StopAndJoin()
		}
	})

	b.Run("goroutine", func(b *testing.B) {
		b.ReportAllocs()
		for range b.N {
			var wg sync.WaitGroup
			wg.Add(1)
			go func() { wg.Done() }()
			wg.Wait()
		}
	})
}

// BenchmarkThreadIterations measures the per-iteration overhead of the
// worker loop with no delay between iterations.
func BenchmarkThreadIterations(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("iterations=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for range b.N {
				count := 0
				t := threadkit.New(func(ctx context.Context) error {
					count++
					return nil
				},
					threadkit.WithLogger(zap.NewNop()),
					threadkit.WithRepeat(threadkit.RepeatFunc(func() (time.Duration, bool) {
						return 0, count < n
					})),
				)
				t.Start()
				<-t.Done()
				t.StopAndJoin()
			}
		})
	}
}

// BenchmarkPollerDecision measures a single jittered repeat decision.
func BenchmarkPollerDecision(b *testing.B) {
	p := threadkit.NewPoller(func(ctx context.Context) error { return nil }, threadkit.PollConfig{
		Interval:  time.Second,
		JitterMin: -time.Millisecond,
		JitterMax: time.Millisecond,
	})

	b.ReportAllocs()
	for range b.N {
		p.ShouldRepeat()
	}
}
