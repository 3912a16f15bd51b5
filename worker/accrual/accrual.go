package accrual

import (
	"context"
	"time"

	"lending/core"
	"lending/worker"

	"github.com/fox-one/pkg/logger"
)

// Accrual drives the controller's market sweep on a tick: interest accrual
// and yield-reward folding for every listed market. Going through the
// controller keeps the sweep inside the call-scoped lock, so it serializes
// with user calls instead of racing their ledger updates.
type Accrual struct {
	worker.TickWorker
	controller core.Controller
}

// New new accrual worker
func New(controller core.Controller, interval time.Duration) *Accrual {
	return &Accrual{
		TickWorker: worker.TickWorker{Delay: interval},
		controller: controller,
	}
}

func (w *Accrual) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "accrual")
	ctx = logger.WithContext(ctx, log)
	log.Infoln("start")
	defer log.Infoln("stop")

	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.controller.AccrueMarkets(ctx)
	})
}
