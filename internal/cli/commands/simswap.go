package commands

import (
	"errors"
	"fmt"

	"github.com/klesify/klesify-backend/internal/cli/output"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/spf13/cobra"
)

// NewSimSwapCommand creates the sim-swap command.
func NewSimSwapCommand() *cobra.Command {
	var maxAge int
	cmd := &cobra.Command{
		Use:   "sim-swap <msisdn>",
		Short: "Check whether a number's SIM was recently swapped",
		Example: `  klesify sim-swap +40712345678
  klesify sim-swap +33699901032 --max-age 48 --backend orange`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var window *int
			if cmd.Flags().Changed("max-age") {
				window = &maxAge
			}
			return runSimSwap(cmd, args[0], window)
		},
	}
	cmd.Flags().IntVar(&maxAge, "max-age", 240, "Window in hours (1-2400)")
	return cmd
}

type simSwapOutput struct {
	core.SimSwapCheck
	MaxAge *int `json:"max_age,omitempty"`
}

func runSimSwap(cmd *cobra.Command, phone string, maxAge *int) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	app, cleanup, err := newApp(cmd, cc, AppOptions{})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	check, err := app.Network.CheckSimSwap(ctx, phone, maxAge)
	if err != nil {
		return fmt.Errorf("sim swap check failed: %w", err)
	}
	if check.LatestSimChange == "" {
		date, err := app.Network.RetrieveSimSwapDate(ctx, phone)
		switch {
		case err == nil:
			check.LatestSimChange = date.LatestSimChange
		case errors.Is(err, core.ErrNoData):
		default:
			cc.Logger.Debug("sim swap date unavailable", "phone", phone, "error", err)
		}
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(simSwapOutput{SimSwapCheck: check, MaxAge: maxAge})
	}

	status := r.Styles().Success.Render("no recent swap")
	if check.Swapped {
		status = r.Styles().Error.Render("SIM swapped")
	}
	r.KeyValue("Phone", phone)
	r.KeyValue("Status", status)
	if check.LatestSimChange != "" {
		r.KeyValue("Last SIM change", check.LatestSimChange)
	}
	if check.Message != "" {
		r.Println(r.Muted(check.Message))
	}
	return nil
}
