package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nq-deploy/deployctl/bootstrap"
)

var dbConfig bootstrap.Config

var applyBreakersCmd = &cobra.Command{
	Use:   "apply-breakers <ayah|word> <refs.json> <name>",
	Short: "seed named break marks (page, juz, hizb) into the database",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := bootstrap.LoadRefs(args[1])
		if err != nil {
			return err
		}
		db, err := bootstrap.Open(dbConfig)
		if err != nil {
			return err
		}

		switch args[0] {
		case "ayah":
			return bootstrap.ApplyAyahBreakers(db, args[2], refs)
		case "word":
			return bootstrap.ApplyWordBreakers(db, args[2], refs)
		}
		return fmt.Errorf("mode must be ayah or word, got %q", args[0])
	},
}

var applyDividersCmd = &cobra.Command{
	Use:   "apply-dividers <ayah|word> <groups.json>",
	Short: "seed recitation divisions, one divider account per group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := bootstrap.LoadDivideGroups(args[1])
		if err != nil {
			return err
		}
		db, err := bootstrap.Open(dbConfig)
		if err != nil {
			return err
		}

		switch args[0] {
		case "ayah":
			return bootstrap.ApplyAyahDividers(db, groups)
		case "word":
			return bootstrap.ApplyWordDividers(db, groups)
		}
		return fmt.Errorf("mode must be ayah or word, got %q", args[0])
	},
}

func init() {
	for _, cmd := range []*cobra.Command{applyBreakersCmd, applyDividersCmd} {
		cmd.Flags().StringVar(&dbConfig.Host, "db-host", "127.0.0.1", "database host")
		cmd.Flags().IntVar(&dbConfig.Port, "db-port", 5432, "database port")
		cmd.Flags().StringVar(&dbConfig.Database, "db-name", "natiq", "database name")
		cmd.Flags().StringVar(&dbConfig.User, "db-user", "", "database user")
		cmd.Flags().StringVar(&dbConfig.Password, "db-password", "", "database password")
		cmd.MarkFlagRequired("db-user")
		cmd.MarkFlagRequired("db-password")
		rootCmd.AddCommand(cmd)
	}
}
