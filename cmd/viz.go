package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/zalepa/roadwatch/chart"
	"github.com/zalepa/roadwatch/dataset"
	"github.com/zalepa/roadwatch/filter"
	"github.com/zalepa/roadwatch/render"
)

var (
	vizPage   string
	vizSet    []string
	vizClick  []string
	vizOut    string
	vizFormat string
	vizWidth  float64
	vizHeight float64
)

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Draw one dashboard page in the terminal or to image files",
	Long: `Draw one dashboard page after applying filter controls and chart clicks in
order. Without --out the charts are printed as text.`,
	Example: `  roadwatch viz --page drug
  roadwatch viz --page drug --set jurisdiction=VIC --click drug-line=2021
  roadwatch viz --page seatbelt --click multi-line=NSW --out charts --format svg`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := dataset.ParsePage(vizPage)
		if err != nil {
			return err
		}
		store, err := loadStore(cmd.Context())
		if err != nil {
			return err
		}
		d, err := dashboard(store, page, vizSet, vizClick)
		if err != nil {
			return err
		}

		var r chart.Renderer = render.NewText(cmd.OutOrStdout())
		if vizOut != "" {
			if err := os.MkdirAll(vizOut, 0o755); err != nil {
				return err
			}
			r = &render.Files{
				Dir:    vizOut,
				Format: vizFormat,
				Width:  vg.Length(vizWidth) * vg.Inch,
				Height: vg.Length(vizHeight) * vg.Inch,
			}
		}
		for _, v := range d.Views() {
			if err := r.Render(v); err != nil {
				return err
			}
		}
		if vizOut != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d charts to %s\n", len(d.Views()), vizOut)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vizCmd)
	f := vizCmd.Flags()
	f.StringVarP(&vizPage, "page", "p", string(dataset.PageDrug), "page: drug, crash, seatbelt")
	f.StringArrayVar(&vizSet, "set", nil, "filter control as dimension=value, repeatable")
	f.StringArrayVar(&vizClick, "click", nil, "chart click as chart=key, repeatable; an empty key clicks the background")
	f.StringVarP(&vizOut, "out", "o", "", "directory for image files (omit for terminal output)")
	f.StringVar(&vizFormat, "format", "png", "image format: "+strings.Join(render.Formats, ", "))
	f.Float64Var(&vizWidth, "width", 8, "image width in inches")
	f.Float64Var(&vizHeight, "height", 5, "image height in inches")
}

// dashboard builds the dashboard for page without drawing anywhere, then
// replays the controls and clicks.
func dashboard(store *dataset.Store, page dataset.Page, set, click []string) (*chart.Dashboard, error) {
	d, err := chart.New(store, page, nil, chart.WithConfig(cfg.Charts), chart.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	for _, s := range set {
		name, value, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want dimension=value", s)
		}
		dim, err := filter.ParseDimension(name)
		if err != nil {
			return nil, err
		}
		if err := d.Control(dim, value); err != nil {
			return nil, err
		}
	}
	for _, c := range click {
		id, key, ok := strings.Cut(c, "=")
		if !ok {
			return nil, fmt.Errorf("--click %q: want chart=key", c)
		}
		if key == "" {
			err = d.ClickBackground(chart.ID(id))
		} else {
			err = d.Click(chart.ID(id), key)
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}
