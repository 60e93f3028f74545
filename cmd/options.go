package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/zalepa/roadwatch/dataset"
)

var optionsPage string

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the filter control values offered by each page as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pages := dataset.Pages
		if optionsPage != "" {
			p, err := dataset.ParsePage(optionsPage)
			if err != nil {
				return err
			}
			pages = []dataset.Page{p}
		}
		store, err := loadStore(cmd.Context())
		if err != nil {
			return err
		}
		out := make(map[dataset.Page]dataset.Options, len(pages))
		for _, p := range pages {
			out[p] = store.Options(p)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd, configCmd)
	optionsCmd.Flags().StringVarP(&optionsPage, "page", "p", "", "only this page")
}
