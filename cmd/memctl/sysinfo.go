package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newSysinfoCmd())
}

func newSysinfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sysinfo",
		Short: "Show host and process memory",
		Long: `The sysinfo command prints host memory totals, this process's resident
set size and the Go runtime's heap figures, for putting allocator numbers in
context.

Example:
  memctl sysinfo
  memctl sysinfo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSysinfo()
		},
	}
}

type sysinfoReport struct {
	HostTotal     uint64  `json:"host_total"`
	HostAvailable uint64  `json:"host_available"`
	HostUsedPct   float64 `json:"host_used_percent"`
	ProcessRSS    uint64  `json:"process_rss"`
	GoHeapAlloc   uint64  `json:"go_heap_alloc"`
	GoHeapSys     uint64  `json:"go_heap_sys"`
	GoNumGC       uint32  `json:"go_num_gc"`
}

func runSysinfo() error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return fmt.Errorf("failed to read host memory: %w", err)
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("failed to open own process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return fmt.Errorf("failed to read process memory: %w", err)
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	report := sysinfoReport{
		HostTotal:     vm.Total,
		HostAvailable: vm.Available,
		HostUsedPct:   vm.UsedPercent,
		ProcessRSS:    info.RSS,
		GoHeapAlloc:   ms.HeapAlloc,
		GoHeapSys:     ms.HeapSys,
		GoNumGC:       ms.NumGC,
	}
	if jsonOut {
		return printJSON(report)
	}

	printInfo("Host memory:\n")
	printInfo("  Total:     %s\n", formatBytes(int64(report.HostTotal)))
	printInfo("  Available: %s\n", formatBytes(int64(report.HostAvailable)))
	printInfo("  Used:      %.1f%%\n", report.HostUsedPct)
	printInfo("Process:\n")
	printInfo("  RSS:       %s\n", formatBytes(int64(report.ProcessRSS)))
	printInfo("  Go heap:   %s in use, %s from OS\n", formatBytes(int64(report.GoHeapAlloc)), formatBytes(int64(report.GoHeapSys)))
	printInfo("  GC cycles: %d\n", report.GoNumGC)
	return nil
}
