package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/collections/rbtree"
	"github.com/joshuapare/memkit/collections/treeiter"
)

var (
	treeRandom int
	treeDelete []int
	treeSeed   uint64
)

func init() {
	cmd := newTreeCmd()
	cmd.Flags().IntVar(&treeRandom, "random", 0, "Insert this many random keys in addition to the arguments")
	cmd.Flags().IntSliceVar(&treeDelete, "delete", nil, "Keys to delete after inserting")
	cmd.Flags().Uint64Var(&treeSeed, "seed", 1, "Seed for --random")
	rootCmd.AddCommand(cmd)
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree [key...]",
		Short: "Insert integer keys into an ordered map and report its shape",
		Long: `The tree command inserts the given integer keys into a left-leaning
red-black tree, optionally deletes some, then prints the keys in order,
the tree height and the result of a full invariant check. With --verbose
it also prints the keys in level order from a tree built over the result.

Example:
  memctl tree 1 5 3 8 2
  memctl tree --random 10000 --json
  memctl tree 1 2 3 4 --delete 2,3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(args)
		},
	}
}

type treeReport struct {
	Keys   []int  `json:"keys,omitempty"`
	Count  int    `json:"count"`
	Height int    `json:"height"`
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
}

func runTree(args []string) error {
	t := rbtree.NewOrdered[int, struct{}]()
	defer t.Close()

	for _, arg := range args {
		k, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", arg, err)
		}
		if err := t.Put(k, struct{}{}); err != nil {
			return err
		}
	}
	rng := rand.New(rand.NewPCG(treeSeed, treeSeed))
	for range treeRandom {
		if err := t.Put(rng.Int(), struct{}{}); err != nil {
			return err
		}
	}
	for _, k := range treeDelete {
		ok, err := t.Delete(k)
		if err != nil {
			return err
		}
		printVerbose("delete %d: %v\n", k, ok)
	}

	report := treeReport{Count: t.Len(), Height: t.Height(), Valid: true}
	if err := t.Validate(); err != nil {
		report.Valid = false
		report.Error = err.Error()
	}
	keys := t.Keys()
	if treeRandom == 0 {
		report.Keys = keys
	}

	if jsonOut {
		return printJSON(report)
	}
	if report.Keys != nil {
		printInfo("Keys: %v\n", report.Keys)
	}
	printInfo("Count: %d\n", report.Count)
	printInfo("Height: %d\n", report.Height)
	if report.Valid {
		printInfo("Valid: yes\n")
	} else {
		printInfo("Valid: no (%s)\n", report.Error)
	}
	if verbose && len(keys) > 0 {
		it := treeiter.New(balanced(keys), treeiter.LevelOrder)
		printVerbose("Level order: %v\n", it.ToList())
	}
	return nil
}

// balanced builds a perfectly balanced iterator tree over sorted keys.
func balanced(keys []int) *treeiter.Node[int] {
	if len(keys) == 0 {
		return nil
	}
	mid := len(keys) / 2
	n := treeiter.NewNode(keys[mid])
	n.SetLeft(balanced(keys[:mid]))
	n.SetRight(balanced(keys[mid+1:]))
	return n
}
