package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Feedactions/internal/telemetry"
	"github.com/shaiso/Feedactions/internal/worker"
)

// exitProtocol — код выхода при нарушении протокола с пулом.
const exitProtocol = 2

// newWorkerCmd создаёт служебную команду процесса пула.
// Её запускает только пул: stdin и stdout заняты протоколом.
func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Pool process entry point (internal)",
		Hidden: true,
		Args:   cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logger := telemetry.SetupWorkerLogger()

			err := worker.Main(context.Background(), logger)
			switch {
			case err == nil, errors.Is(err, worker.ErrNoTask):
				os.Exit(0)
			default:
				logger.Error("worker failed", "error", err)
				os.Exit(exitProtocol)
			}
		},
	}
}
