package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/hooking"
	"github.com/joshuapare/memkit/mem/alloc"
)

// workloadFlags are shared by the alloc and chunk commands.
type workloadFlags struct {
	count      int
	maxSize    int
	rounds     int
	seed       uint64
	poolSize   int
	bucketLen  int
	systemMmap bool
}

func (w *workloadFlags) register(cmd *cobra.Command, poolSize, bucketLen int) {
	cmd.Flags().IntVarP(&w.count, "count", "n", 1000, "Blocks allocated per round")
	cmd.Flags().IntVar(&w.maxSize, "max-size", 512, "Largest requested block size in bytes")
	cmd.Flags().IntVar(&w.rounds, "rounds", 4, "Allocate/free rounds to run")
	cmd.Flags().Uint64Var(&w.seed, "seed", 1, "Seed for the size distribution")
	cmd.Flags().IntVar(&w.poolSize, "max-poolable", poolSize, "Largest block size kept in free lists")
	cmd.Flags().IntVar(&w.bucketLen, "bucket-len", bucketLen, "Free list length per size")
	cmd.Flags().BoolVar(&w.systemMmap, "mmap", false, "Reserve memory from the OS instead of the Go heap")
}

func (w *workloadFlags) validate() error {
	if w.count <= 0 || w.maxSize <= 0 || w.rounds <= 0 {
		return fmt.Errorf("--count, --max-size and --rounds must be positive")
	}
	return nil
}

func (w *workloadFlags) allocator(name string) *alloc.Allocator {
	cfg := &alloc.Config{Name: name, MaxPoolableSize: w.poolSize, MaxBucketLength: w.bucketLen}
	if w.systemMmap {
		cfg.Source = alloc.NewMmapSource()
	}
	return alloc.New(cfg)
}

// sizes returns the request sizes for one round.
func (w *workloadFlags) sizes(rng *rand.Rand) []int {
	out := make([]int, w.count)
	for i := range out {
		out[i] = 1 + rng.IntN(w.maxSize)
	}
	return out
}

var allocFlags workloadFlags

func init() {
	cmd := newAllocCmd()
	allocFlags.register(cmd, alloc.DefaultConfig.MaxPoolableSize, alloc.DefaultConfig.MaxBucketLength)
	rootCmd.AddCommand(cmd)
}

func newAllocCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alloc",
		Short: "Run an allocate/free workload against the pooled allocator",
		Long: `The alloc command allocates --count blocks of random size per round,
writes into each one, frees them all and repeats. Later rounds are served
from the allocator's free lists, which shows up as pool hits.

Example:
  memctl alloc
  memctl alloc --count 10000 --max-size 4096 --rounds 8
  memctl alloc --mmap --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc(allocFlags)
		},
	}
}

type allocReport struct {
	Stats  alloc.Stats
	Events map[string]int
}

func runAlloc(w workloadFlags) error {
	if err := w.validate(); err != nil {
		return err
	}

	a := w.allocator("memctl")
	defer a.Close()
	rec := &hooking.Recorder{}
	a.AcceptHook(rec)

	rng := rand.New(rand.NewPCG(w.seed, w.seed))
	for round := range w.rounds {
		handles := make([]alloc.Handle, 0, w.count)
		for _, size := range w.sizes(rng) {
			h, err := a.Allocate(size)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			mem, err := a.Bytes(h)
			if err != nil {
				return err
			}
			mem[0] = byte(round)
			handles = append(handles, h)
		}
		for _, h := range handles {
			if err := a.Free(h); err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
		}
		printVerbose("round %d: %s\n", round, a.Stats())
	}

	stats := a.Stats()
	events := map[string]int{
		alloc.HookPosAllocated.Name:   rec.Count(alloc.HookPosAllocated),
		alloc.HookPosFreed.Name:       rec.Count(alloc.HookPosFreed),
		alloc.HookPosAllocFailed.Name: rec.Count(alloc.HookPosAllocFailed),
	}
	if jsonOut {
		return printJSON(allocReport{Stats: stats, Events: events})
	}
	printAllocStats(stats)
	return nil
}

func printAllocStats(s alloc.Stats) {
	printInfo("Allocator %s\n", s.Name)
	printInfo("  Allocations:   %s\n", formatNumber(s.AllocationCount))
	printInfo("  Frees:         %s\n", formatNumber(s.FreeCount))
	printInfo("  Allocated:     %s\n", formatBytes(s.TotalAllocated))
	printInfo("  Freed:         %s\n", formatBytes(s.TotalFreed))
	printInfo("  In use:        %s (peak %s)\n", formatBytes(s.CurrentUsage), formatBytes(s.PeakUsage))
	printInfo("  Pool hits:     %s (%.1f%%)\n", formatNumber(s.PoolHits), s.HitRate()*100)
	printInfo("  Pool misses:   %s\n", formatNumber(s.PoolMisses))
	printInfo("  Pooled:        %d blocks, %s\n", s.PooledBlocks, formatBytes(s.PooledBytes))
	printInfo("  Avg alloc:     %s\n", s.AverageAllocTime)
	printInfo("  Avg free:      %s\n", s.AverageFreeTime)
}
