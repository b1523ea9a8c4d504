// Feedactions — исполнитель действий над ссылками из RSS-лент.
//
// Один бинарник:
//
//	feedactions serve    — HTTP API, пул worker-процессов, журнал, cron
//	feedactions worker   — служебная команда: процесс пула (stdin/stdout протокол)
//	feedactions push     — подписать и отправить запрос
//	feedactions sign     — вывести подписанную ссылку
//	feedactions stats | history | catalog
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Feedactions/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "feedactions",
		Short:         "Feedactions — run actions on feed links in isolated processes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("FEEDACTIONS_API_URL", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	apiURLFn := func() string { return apiURL }

	rootCmd.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		cli.NewPushCmd(clientFn, outputFn),
		cli.NewSignCmd(apiURLFn, outputFn),
		cli.NewStatsCmd(clientFn, outputFn),
		cli.NewHistoryCmd(clientFn, outputFn),
		cli.NewCatalogCmd(clientFn, outputFn),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
