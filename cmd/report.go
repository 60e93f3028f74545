package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zalepa/roadwatch/dataset"
	"github.com/zalepa/roadwatch/render"
)

var (
	reportOut   string
	reportPages []string
	reportSet   []string
)

var pageTitles = map[dataset.Page]string{
	dataset.PageDrug:     "Drug Testing Enforcement",
	dataset.PageCrash:    "Enforcement and Crash Outcomes",
	dataset.PageSeatbelt: "Seatbelt Enforcement",
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a PDF report with one section per dashboard page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var pages []dataset.Page
		for _, s := range reportPages {
			p, err := dataset.ParsePage(s)
			if err != nil {
				return err
			}
			pages = append(pages, p)
		}
		store, err := loadStore(cmd.Context())
		if err != nil {
			return err
		}

		tmp, err := os.MkdirTemp("", "roadwatch-report-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)

		var parts []string
		for _, p := range pages {
			d, err := dashboard(store, p, reportSet, nil)
			if err != nil {
				return err
			}
			title := pageTitles[p] + ": " + d.State().Describe()
			part := filepath.Join(tmp, string(p)+".pdf")
			if err := render.WriteReport(part, title, d.Views()); err != nil {
				return fmt.Errorf("%s page: %w", p, err)
			}
			parts = append(parts, part)
		}

		if err := render.Merge(reportOut, parts...); err != nil {
			return err
		}
		n, err := render.PageCount(reportOut)
		if err != nil {
			return err
		}
		logger.Info("report written", "path", reportOut, "pages", n)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages)\n", reportOut, n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	f := reportCmd.Flags()
	f.StringVarP(&reportOut, "out", "o", "roadwatch.pdf", "output PDF path")
	f.StringSliceVar(&reportPages, "pages", []string{"drug", "crash", "seatbelt"}, "pages to include, in order")
	f.StringArrayVar(&reportSet, "set", nil, "filter control as dimension=value applied to every page, repeatable")
}
