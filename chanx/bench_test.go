package chanx

import (
	"fmt"
	"sync"
	"testing"
)

// BenchmarkSendReceive moves n values from one producer to one consumer,
// compared to a buffered Go channel of the same size.
func BenchmarkSendReceive(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("channel/items=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for range b.N {
				c := New[int]()
				go func() {
					for i := range n {
						c.Send(i)
					}
				}()
				for range n {
					if _, ok := c.Receive(); !ok {
						b.Fatal("receive failed on open channel")
					}
				}
				c.Close()
			}
		})

		b.Run(fmt.Sprintf("native/items=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for range b.N {
				ch := make(chan int, n)
				go func() {
					for i := range n {
						ch <- i
					}
					close(ch)
				}()
				for range ch {
				}
			}
		})
	}
}

// BenchmarkContendedSend measures many producers sending into one
// channel that is drained in bulk.
func BenchmarkContendedSend(b *testing.B) {
	for _, producers := range []int{2, 8, 32} {
		b.Run(fmt.Sprintf("producers=%d", producers), func(b *testing.B) {
			b.ReportAllocs()
			for range b.N {
				c := New[int]()
				var wg sync.WaitGroup
				for p := range producers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for i := range 100 {
							c.Send(p*100 + i)
						}
					}()
				}
				wg.Wait()
				if got := len(c.Drain()); got != producers*100 {
					b.Fatalf("drained %d values, want %d", got, producers*100)
				}
			}
		})
	}
}
