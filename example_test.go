package threadkit_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/baxromumarov/threadkit"
)

func ExampleNew() {
	t := threadkit.New(func(ctx context.Context) error {
		fmt.Println("working")
		return nil
	}, threadkit.WithName("worker"), threadkit.WithLogger(zap.NewNop()))

	t.Start()
	<-t.Done()
	t.StopAndJoin()

	fmt.Println(t.State())
	// Output:
	// working
	// Stopped
}

func ExampleNew_repeat() {
	n := 0
	t := threadkit.New(func(ctx context.Context) error {
		n++
		return nil
	},
		threadkit.WithLogger(zap.NewNop()),
		threadkit.WithRepeat(threadkit.RepeatFunc(func() (time.Duration, bool) {
			return time.Millisecond, n < 3
		})),
	)

	t.Start()
	<-t.Done()
	t.StopAndJoin()

	fmt.Println("iterations:", n)
	// Output: iterations: 3
}

func ExampleNewPoller() {
	p := threadkit.NewPoller(func(ctx context.Context) error {
		fmt.Println("poll")
		return nil
	}, threadkit.PollConfig{Interval: time.Millisecond, MaxCount: 2},
		threadkit.WithLogger(zap.NewNop()))

	p.Start()
	<-p.Done()
	p.StopAndJoin()

	fmt.Println("repeats:", p.Count())
	// Output:
	// poll
	// poll
	// poll
	// repeats: 2
}

func ExampleWithHooks() {
	t := threadkit.New(func(ctx context.Context) error {
		return errors.New("boom")
	},
		threadkit.WithLogger(zap.NewNop()),
		threadkit.WithHooks(threadkit.Hooks{
			OnError: func(err error) {
				fmt.Println("error:", threadkit.CauseOf(err))
			},
			OnFinished: func() { fmt.Println("finished") },
		}),
	)

	t.Start()
	<-t.Done()
	t.StopAndJoin()
	// Output:
	// error: boom
	// finished
}
