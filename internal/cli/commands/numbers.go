package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/klesify/klesify-backend/internal/cli/output"
	"github.com/klesify/klesify-backend/internal/dataset"
	"github.com/spf13/cobra"
)

// NewNumbersCommand creates the numbers command.
func NewNumbersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "numbers",
		Short: "List the phone numbers in the mock dataset",
		Args:  cobra.NoArgs,
		RunE:  runNumbers,
	}
}

type numberInfo struct {
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name,omitempty"`
	Locality    string `json:"locality,omitempty"`
	Location    bool   `json:"location_available"`
}

func runNumbers(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	data, err := dataset.Open(cc.Cfg.Dataset.Dir, cc.Logger)
	if err != nil {
		return err
	}

	phones := data.PhoneNumbers()
	infos := make([]numberInfo, 0, len(phones))
	for _, phone := range phones {
		sub, _ := data.Subscriber(phone)
		name, _ := sub.KYCValue("name")
		locality, _ := sub.KYCValue("locality")
		infos = append(infos, numberInfo{
			PhoneNumber: phone,
			Name:        name,
			Locality:    locality,
			Location:    sub.Data.Location.Available,
		})
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	if len(infos) == 0 {
		r.Warning("No subscribers found in " + data.Dir())
		return nil
	}
	rows := make([]table.Row, 0, len(infos))
	for _, n := range infos {
		rows = append(rows, table.Row{n.PhoneNumber, n.Name, n.Locality, n.Location})
	}
	r.Table(table.Row{"Phone", "Name", "Locality", "Location"}, rows)
	return nil
}
