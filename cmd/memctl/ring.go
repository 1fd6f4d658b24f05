package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/ring"
)

var (
	ringCapacity int
	ringItems    int
	ringBatch    int
	ringTimeout  time.Duration
)

func init() {
	cmd := newRingCmd()
	cmd.Flags().IntVarP(&ringCapacity, "capacity", "c", 64, "Ring buffer capacity")
	cmd.Flags().IntVarP(&ringItems, "items", "n", 100000, "Items the producer writes")
	cmd.Flags().IntVar(&ringBatch, "batch", 1, "Items per write and read call (1 uses single-item calls)")
	cmd.Flags().DurationVar(&ringTimeout, "timeout", time.Second, "Give up when a wait lasts longer than this")
	rootCmd.AddCommand(cmd)
}

func newRingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ring",
		Short: "Run a producer/consumer pair through a ring buffer",
		Long: `The ring command starts one producer and one consumer goroutine that
pass --items integers through a bounded ring buffer, waiting for space and
data as needed, and reports throughput and the overflow/underflow counters.

Example:
  memctl ring
  memctl ring --capacity 8 --items 1000000 --batch 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRing(ringCapacity, ringItems, ringBatch, ringTimeout)
		},
	}
}

type ringReport struct {
	Capacity       int           `json:"capacity"`
	Items          int           `json:"items"`
	Received       int           `json:"received"`
	InOrder        bool          `json:"in_order"`
	OverflowCount  int64         `json:"overflow_count"`
	UnderflowCount int64         `json:"underflow_count"`
	Elapsed        time.Duration `json:"elapsed_ns"`
}

func runRing(capacity, items, batch int, timeout time.Duration) error {
	if items < 0 || batch <= 0 {
		return fmt.Errorf("--items must not be negative and --batch must be positive")
	}
	r, err := ring.New[int](capacity)
	if err != nil {
		return err
	}
	defer r.Close()

	start := time.Now()
	var (
		wg       sync.WaitGroup
		prodErr  error
		received int
		inOrder  = true
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		prodErr = produce(r, items, batch, timeout)
	}()
	go func() {
		defer wg.Done()
		received, inOrder = consume(r, items, batch, timeout)
	}()
	wg.Wait()
	if prodErr != nil {
		return prodErr
	}

	report := ringReport{
		Capacity:       capacity,
		Items:          items,
		Received:       received,
		InOrder:        inOrder,
		OverflowCount:  r.OverflowCount(),
		UnderflowCount: r.UnderflowCount(),
		Elapsed:        time.Since(start),
	}
	if received != items {
		return fmt.Errorf("consumer timed out after %d of %d items", received, items)
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("Transferred %s items through capacity %d in %s\n", formatNumber(int64(received)), capacity, report.Elapsed)
	printInfo("  In order:   %v\n", report.InOrder)
	printInfo("  Overflows:  %s\n", formatNumber(report.OverflowCount))
	printInfo("  Underflows: %s\n", formatNumber(report.UnderflowCount))
	return nil
}

func produce(r *ring.Buffer[int], items, batch int, timeout time.Duration) error {
	buf := make([]int, 0, batch)
	for next := 0; next < items; {
		var n int
		if batch == 1 {
			if r.Write(next) {
				n = 1
			}
		} else {
			buf = buf[:0]
			for i := next; i < min(next+batch, items); i++ {
				buf = append(buf, i)
			}
			n = r.WriteMany(buf)
		}
		next += n
		if n == 0 && !r.WaitForSpace(timeout) {
			return fmt.Errorf("producer timed out at item %d", next)
		}
	}
	return nil
}

func consume(r *ring.Buffer[int], items, batch int, timeout time.Duration) (int, bool) {
	buf := make([]int, batch)
	got, inOrder := 0, true
	for got < items {
		var n int
		if batch == 1 {
			if v, ok := r.Read(); ok {
				buf[0], n = v, 1
			}
		} else {
			n = r.ReadMany(buf[:min(batch, items-got)])
		}
		for _, v := range buf[:n] {
			if v != got {
				inOrder = false
			}
			got++
		}
		if n == 0 && !r.WaitForData(timeout) {
			break
		}
	}
	return got, inOrder
}
