package cli

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Feedactions/internal/dispatch"
	"github.com/shaiso/Feedactions/internal/mq"
	"github.com/shaiso/Feedactions/internal/telemetry"
)

// errNoSecret — подпись без общего секрета бессмысленна: сервер его не узнает.
var errNoSecret = errors.New("ACTION_SECRET (or --secret) is required to sign requests")

func signerFor(secret string) (*dispatch.Signer, error) {
	if secret == "" {
		return nil, errNoSecret
	}
	return dispatch.NewSigner(secret)
}

// NewPushCmd создаёт команду отправки запроса на действие.
func NewPushCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var secret, viaMQ string

	cmd := &cobra.Command{
		Use:   "push ACTION URL",
		Short: "Sign and submit an action request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			signer, err := signerFor(secret)
			if err != nil {
				return err
			}
			req := PushRequest{Action: args[0], URL: args[1], Signature: signer.Sign(args[0], args[1])}

			if viaMQ != "" {
				id, err := publishRequest(cmd.Context(), viaMQ, req)
				if err != nil {
					return err
				}
				out.Success("Request queued, message " + id)
				return nil
			}

			acc, err := clientFn().Push(req)
			if IsRejected(err) {
				out.Warn("Pool is busy, try again later")
				return err
			}
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "ACTION", "URL"},
				[][]string{{strconv.FormatUint(acc.ID, 10), acc.Action, acc.URL}},
				acc,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("ACTION_SECRET"), "Signing secret shared with the server")
	cmd.Flags().StringVar(&viaMQ, "via-mq", "", "Publish to RabbitMQ at this URL instead of calling the API")

	return cmd
}

// publishRequest ставит запрос в очередь actions.requested.
func publishRequest(ctx context.Context, amqpURL string, req PushRequest) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	logger := telemetry.NewLogger(os.Stderr)
	conn, err := mq.NewConnection(amqpURL, logger)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := mq.SetupTopology(ctx, conn); err != nil {
		return "", err
	}

	return mq.NewPublisher(conn, logger).PublishActionRequested(ctx, mq.ActionRequestedPayload{
		Action:    req.Action,
		URL:       req.URL,
		Signature: req.Signature,
	})
}

// NewSignCmd создаёт команду вывода подписанной ссылки.
func NewSignCmd(apiURLFn func() string, outputFn func() *Output) *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "sign ACTION URL",
		Short: "Print the signed link for an action",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := signerFor(secret)
			if err != nil {
				return err
			}
			outputFn().Line(SignedLink(apiURLFn(), args[0], args[1], signer.Sign(args[0], args[1])))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("ACTION_SECRET"), "Signing secret shared with the server")
	return cmd
}

// SignedLink собирает ссылку для GET /api/v1/actions/link.
func SignedLink(baseURL, action, link, signature string) string {
	q := url.Values{"a": {action}, "url": {link}, "s": {signature}}
	return strings.TrimRight(baseURL, "/") + "/api/v1/actions/link?" + q.Encode()
}

// NewStatsCmd создаёт команду вывода статистики пула.
func NewStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := clientFn().Stats()
			if err != nil {
				return err
			}

			rows := [][]string{
				{Status("ok"), strconv.Itoa(len(st.OK)), joinIDs(st.OK)},
				{Status("skipped"), strconv.Itoa(len(st.Skipped)), joinIDs(st.Skipped)},
				{Status("aborted"), strconv.Itoa(len(st.Aborted)), joinIDs(st.Aborted)},
				{Status("failed"), strconv.Itoa(len(st.Failed)), joinIDs(st.Failed)},
				{"in flight", strconv.Itoa(st.InFlight), ""},
				{"active", strconv.Itoa(st.Active), ""},
				{"not begun", strconv.Itoa(st.Queued), ""},
				{"workers", strconv.Itoa(st.Workers), ""},
			}
			outputFn().Print([]string{"STATE: " + st.State, "COUNT", "IDS"}, rows, st)
			return nil
		},
	}
}

// NewHistoryCmd создаёт команду вывода журнала.
func NewHistoryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts HistoryOpts

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := clientFn().History(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{
					strconv.FormatUint(r.ID, 10),
					r.Name,
					Status(r.Status),
					r.FinishedAt.Local().Format(time.DateTime),
					r.Error,
				}
			}
			outputFn().Print([]string{"ID", "ACTION", "STATUS", "FINISHED", "ERROR"}, rows, records)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (ok, failed, aborted, skipped)")
	cmd.Flags().StringVar(&opts.Name, "action", "", "Filter by action name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")

	return cmd
}

// NewCatalogCmd создаёт команду вывода каталога действий.
func NewCatalogCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List available actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := clientFn().Catalog()
			if err != nil {
				return err
			}

			rows := make([][]string, len(items))
			for i, it := range items {
				rows[i] = []string{it.Name, it.Kind, it.Title}
			}
			outputFn().Print([]string{"NAME", "KIND", "TITLE"}, rows, items)
			return nil
		},
	}
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, " ")
}

