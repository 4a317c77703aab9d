package run

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.firedancer.io/stake/pkg/accounts"
	"go.firedancer.io/stake/pkg/metrics"
	"go.firedancer.io/stake/pkg/simulator"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

var (
	Cmd = cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run stake instruction scenarios",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}

	flagStore       string
	flagDbDir       string
	flagMetricsAddr string
	flagParallel    int
	flagProgress    bool
)

func init() {
	Cmd.Flags().StringVar(&flagStore, "store", "mem", "Account store: mem, lotusdb or pebble")
	Cmd.Flags().StringVar(&flagDbDir, "db-dir", "", "Directory for on-disk account stores (default: temporary)")
	Cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	Cmd.Flags().IntVarP(&flagParallel, "parallel", "j", 4, "Scenarios to run concurrently")
	Cmd.Flags().BoolVar(&flagProgress, "progress", true, "Show progress bar")
}

type closer interface {
	Close() error
}

// openStore returns a fresh account store for one scenario. Every scenario
// gets its own store so that account names cannot collide across files.
func openStore(baseDir string, idx int) (accounts.Accounts, closer, error) {
	switch flagStore {
	case "mem":
		return accounts.NewMemAccounts(), nil, nil
	case "lotusdb":
		db, err := accounts.CreateNewAccountsDb(filepath.Join(baseDir, fmt.Sprintf("lotus-%d", idx)))
		return db, db, err
	case "pebble":
		db, err := accounts.OpenPebbleAccountsDb(filepath.Join(baseDir, fmt.Sprintf("pebble-%d", idx)))
		return db, db, err
	default:
		return nil, nil, fmt.Errorf("unknown store %q", flagStore)
	}
}

func run(c *cobra.Command, args []string) error {
	ctx := c.Context()

	scenarios := make([]*simulator.Scenario, len(args))
	for idx, path := range args {
		scenario, err := simulator.LoadScenario(path)
		if err != nil {
			return err
		}
		scenarios[idx] = scenario
	}

	baseDir := flagDbDir
	if baseDir == "" && flagStore != "mem" {
		tmp, err := os.MkdirTemp("", "stakesim-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		baseDir = tmp
	}

	recorder := metrics.NewRecorder()
	if flagMetricsAddr != "" {
		url, stop, err := metrics.StartServer(flagMetricsAddr, recorder)
		if err != nil {
			return err
		}
		defer stop()
		klog.Infof("serving metrics at %s", url)
	}

	var progress *mpb.Progress
	var bar *mpb.Bar
	if flagProgress {
		progress = mpb.NewWithContext(ctx)
		bar = progress.AddBar(int64(len(scenarios)),
			mpb.PrependDecorators(decor.Name("scenarios "), decor.CountersNoUnit("%d / %d")),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}

	results := make([]*simulator.Result, len(scenarios))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(max(flagParallel, 1))
	for idx, scenario := range scenarios {
		idx, scenario := idx, scenario
		group.Go(func() error {
			store, db, err := openStore(baseDir, idx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			result, err := simulator.NewRunner(store, recorder).Run(ctx, scenario)
			if err != nil {
				return err
			}
			results[idx] = result
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	err := group.Wait()
	if progress != nil {
		if err != nil {
			bar.Abort(false)
		}
		progress.Wait()
	}
	if err != nil {
		return err
	}

	var failed int
	for _, result := range results {
		status := "PASS"
		if !result.Passed() {
			status = "FAIL"
			failed++
		}
		fmt.Printf("%s %s state=%s\n", status, result.Scenario, solana.Hash(result.StateHash))
		for _, step := range result.Failures() {
			fmt.Printf("    step %d %s: got %s, expected %s\n", step.Index, step.Instruction, step.Formatted, step.Expected)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}
