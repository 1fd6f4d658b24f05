package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/alloc"
	"github.com/joshuapare/memkit/mem/chunk"
)

var (
	chunkFlags workloadFlags
	chunkTrim  bool
)

func init() {
	cmd := newChunkCmd()
	chunkFlags.register(cmd, chunk.DefaultConfig.MaxPoolableSize, chunk.DefaultConfig.MaxBucketLength)
	cmd.Flags().BoolVar(&chunkTrim, "trim", false, "Trim the manager's free lists after every round")
	rootCmd.AddCommand(cmd)
}

func newChunkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chunk",
		Short: "Run an allocate/access/free workload through the chunk manager",
		Long: `The chunk command runs the same workload as alloc, but through a chunk
manager layered over a pooled allocator. Each chunk is accessed once, so the
report shows both cache tiers and the access counters.

Example:
  memctl chunk
  memctl chunk --bucket-len 4 --trim --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunk(chunkFlags, chunkTrim)
		},
	}
}

func runChunk(w workloadFlags, trim bool) error {
	if err := w.validate(); err != nil {
		return err
	}

	backend := w.allocator("memctl-backend")
	defer backend.Close()
	m := chunk.New(backend, &chunk.Config{
		Name:            "memctl",
		MaxPoolableSize: w.poolSize,
		MaxBucketLength: w.bucketLen,
	})
	defer m.Close()

	rng := rand.New(rand.NewPCG(w.seed, w.seed))
	for round := range w.rounds {
		handles := make([]alloc.Handle, 0, w.count)
		for _, size := range w.sizes(rng) {
			h, err := m.AllocateChunk(size)
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			mem, err := m.AccessChunk(h)
			if err != nil {
				return err
			}
			mem[len(mem)-1] = byte(round)
			handles = append(handles, h)
		}
		for _, h := range handles {
			if err := m.FreeChunk(h); err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
		}
		if trim {
			n, err := m.TrimFreeChunks()
			if err != nil {
				return err
			}
			printVerbose("round %d: trimmed %d chunks\n", round, n)
		}
		printVerbose("round %d: %s\n", round, m.Stats())
	}

	stats := m.Stats()
	if jsonOut {
		return printJSON(stats)
	}

	printInfo("Chunk manager %s\n", stats.Name)
	printInfo("  Allocations:   %s\n", formatNumber(stats.AllocationCount))
	printInfo("  Frees:         %s\n", formatNumber(stats.FreeCount))
	printInfo("  Accesses:      %s\n", formatNumber(stats.TotalAccesses))
	printInfo("  In use:        %s (peak %s)\n", formatBytes(stats.CurrentUsage), formatBytes(stats.PeakUsage))
	printInfo("  Cache hits:    %s (%.1f%%)\n", formatNumber(stats.CacheHits), stats.HitRate()*100)
	printInfo("  Cache misses:  %s\n", formatNumber(stats.CacheMisses))
	printInfo("  Cached:        %d chunks, %s\n", stats.CachedChunks, formatBytes(stats.CachedBytes))
	printInfo("\n")
	printAllocStats(stats.Backend)
	return nil
}
