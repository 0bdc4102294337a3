// nq-importer loads mushaf and translation content into a deployed API.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/importer"
)

var nonInteractive bool

var rootCmd = &cobra.Command{
	Use:          "nq-importer",
	Short:        "import mushaf and translation files into the Quran API",
	SilenceUsage: true,
}

var loginCmd = &cobra.Command{
	Use:   "login <api-url> [username password]",
	Short: "authenticate and store the API token",
	Args:  cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := importer.NewClient(args[0])
		if err != nil {
			return err
		}

		var username, password string
		switch {
		case len(args) == 3:
			username, password = args[1], args[2]
		case nonInteractive:
			return fmt.Errorf("username and password are required with --non-interactive")
		default:
			username, password, err = promptCredentials()
			if err != nil {
				return err
			}
		}

		return client.Login(cmd.Context(), username, password)
	},
}

var importMushafCmd = &cobra.Command{
	Use:   "import-mushaf <file.json> <api-url>",
	Short: "upload a single mushaf file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !strings.HasSuffix(args[0], ".json") {
			return fmt.Errorf("input file must be a .json file: %s", args[0])
		}
		client, err := importer.NewClient(args[1])
		if err != nil {
			return err
		}
		return client.ImportFile(cmd.Context(), args[0], importer.KindMushaf)
	},
}

var importTranslationCmd = &cobra.Command{
	Use:   "import-translation <file.json> <api-url>",
	Short: "upload a single translation file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := importer.NewClient(args[1])
		if err != nil {
			return err
		}
		return client.ImportFile(cmd.Context(), args[0], importer.KindTranslation)
	},
}

var importTranslationsCmd = &cobra.Command{
	Use:   "import-translations <dir> <api-url>",
	Short: "upload every translation file in a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := importer.NewClient(args[1])
		if err != nil {
			return err
		}
		summary, err := client.ImportDirectory(cmd.Context(), args[0], importer.KindTranslation)
		if err != nil {
			return err
		}
		common.Logger.WithField("succeeded", summary.Succeeded).
			WithField("failed", summary.Failed).Info("import finished")
		if summary.Failed > 0 {
			return fmt.Errorf("failed files: %s", strings.Join(summary.FailedFiles, ", "))
		}
		return nil
	},
}

func promptCredentials() (string, string, error) {
	fmt.Print("Username: ")
	reader := bufio.NewReader(os.Stdin)
	username, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}

	fmt.Print("Password: ")
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(username), string(passBytes), nil
}

func init() {
	loginCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "fail instead of prompting for credentials")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(importMushafCmd)
	rootCmd.AddCommand(importTranslationCmd)
	rootCmd.AddCommand(importTranslationsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		common.Logger.Error(err)
		os.Exit(1)
	}
}
