package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/klesify/klesify-backend/internal/cli/output"
	"github.com/klesify/klesify-backend/internal/store"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Phone string
	Limit int
	ID    string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored analyses",
		Example: `  # Latest analyses
  klesify history

  # Analyses of one caller
  klesify history --phone +40712345678 --limit 10

  # One full report
  klesify history --id 3f1c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "Only analyses of this caller")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", store.DefaultListLimit, "Maximum number of analyses")
	cmd.Flags().StringVar(&opts.ID, "id", "", "Show one full report")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	st, err := store.Open(cmd.Context(), store.Config{Driver: cc.Cfg.Store.Driver, DSN: cc.Cfg.Store.DSN}, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	r := cc.Renderer
	if opts.ID != "" {
		report, err := st.GetReport(cmd.Context(), opts.ID)
		if err != nil {
			return err
		}
		return renderReport(r, report)
	}

	if opts.Limit < 1 {
		return core.InvalidArgument("--limit must be positive")
	}
	summaries, err := st.ListReports(cmd.Context(), core.ListOptions{Phone: opts.Phone, Limit: opts.Limit})
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(summaries)
	}
	if len(summaries) == 0 {
		r.Warning("No analyses stored yet")
		return nil
	}
	rows := make([]table.Row, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, table.Row{
			s.CreatedAt.Local().Format(time.DateTime),
			s.CallerPhone,
			s.Score,
			r.RiskLabel(s.RiskLevel),
			s.ID,
		})
	}
	r.Table(table.Row{"When", "Caller", "Score", "Risk", "ID"}, rows)
	return nil
}
