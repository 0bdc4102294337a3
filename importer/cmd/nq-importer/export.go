package main

import (
	"github.com/spf13/cobra"

	"github.com/nq-deploy/deployctl/importer"
)

var exportMushaf string

var exportCmd = &cobra.Command{
	Use:   "export <out-dir> <api-url>",
	Short: "download the API's quran content as JSON files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := importer.NewClient(args[1])
		if err != nil {
			return err
		}
		return client.Export(cmd.Context(), args[0], exportMushaf)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMushaf, "mushaf", "hafs", "mushaf to export surahs for")
	rootCmd.AddCommand(exportCmd)
}
