package cmd

import (
	"sync"
	"time"

	"lending/worker"
	"lending/worker/accrual"
	"lending/worker/liquidation"

	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "lending job worker",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		engine := provideEngine(ctx)
		interval := time.Duration(cfg.Scanner.IntervalSeconds) * time.Second

		workers := []worker.Worker{
			accrual.New(engine.controller, time.Second),
			liquidation.New(engine.controller, interval),
		}

		wg := sync.WaitGroup{}
		for _, w := range workers {
			wg.Add(1)

			go func(worker worker.Worker) {
				defer wg.Done()
				worker.Run(ctx)
			}(w)
		}

		wg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
