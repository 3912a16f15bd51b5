package liquidation

import (
	"context"
	"time"

	"lending/core"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
)

// Scanner drives the controller's bounded liquidation sweep on a tick
type Scanner struct {
	worker.TickWorker
	controller core.Controller
}

// New new liquidation scanner
func New(controller core.Controller, interval time.Duration) *Scanner {
	return &Scanner{
		TickWorker: worker.TickWorker{Delay: interval},
		controller: controller,
	}
}

func (w *Scanner) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "liquidation")
	ctx = logger.WithContext(ctx, log)
	log.Infoln("start")
	defer log.Infoln("stop")

	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.controller.CheckAndLiquidatePositions(ctx)
	})
}
