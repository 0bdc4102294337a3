package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/tanzil"
)

var prettyJSON bool

var convertQuranCmd = &cobra.Command{
	Use:   "convert-quran <quran.xml> <short-name> <full-name> <source>",
	Short: "convert a Tanzil quran document to an importable JSON file",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if !tanzil.ValidQuranSource(source) {
			common.Logger.WithField("file", args[0]).
				Warn("document does not match the pristine Tanzil text")
		}

		mushaf := tanzil.Mushaf{ShortName: args[1], Name: args[2], Source: args[3]}
		quran, err := tanzil.ParseQuran(source, mushaf)
		if err != nil {
			return err
		}

		return writeConverted(mushaf.ShortName+".json", quran)
	},
}

var convertTranslationCmd = &cobra.Command{
	Use:   "convert-translation <file.xml> <mushaf> <language> <author>",
	Short: "convert a Tanzil translation document to an importable JSON file",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		translation, err := tanzil.ParseTranslation(source, args[1], args[2], args[3])
		if err != nil {
			return err
		}
		return writeConverted(args[2]+"."+args[3]+".json", translation)
	},
}

var convertTranslationsCmd = &cobra.Command{
	Use:   "convert-translations <dir> <out-dir> <mushaf>",
	Short: "convert every Tanzil translation in a directory",
	Long: "Converts every .xml file in dir. Language and author are taken\n" +
		"from the file name, which must look like en.mahdi.xml.",
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		matches, err := filepath.Glob(filepath.Join(args[0], "*.xml"))
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return fmt.Errorf("no .xml files found in %s", args[0])
		}
		if err := os.MkdirAll(args[1], 0755); err != nil {
			return err
		}

		for _, path := range matches {
			language, author, err := tanzil.TranslationMetadata(path)
			if err != nil {
				common.Logger.WithField("file", filepath.Base(path)).
					WithField("error", err).Warn("skipped")
				continue
			}
			source, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			translation, err := tanzil.ParseTranslation(source, args[2], language, author)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			out := filepath.Join(args[1], language+"."+author+".json")
			if err := writeConverted(out, translation); err != nil {
				return err
			}
		}
		return nil
	},
}

func writeConverted(path string, v interface{}) error {
	data, err := tanzil.EncodeJSON(v, prettyJSON)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	common.Logger.WithField("file", path).Info("converted")
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{convertQuranCmd, convertTranslationCmd, convertTranslationsCmd} {
		cmd.Flags().BoolVar(&prettyJSON, "pretty", false, "indent the JSON output")
		rootCmd.AddCommand(cmd)
	}
}
