package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// mappingsDoc is the YAML shape for exported mapping configuration.
type mappingsDoc struct {
	Campaigns map[string][]string `yaml:"campaigns"`
	UTM       map[string]string   `yaml:"utm"`
}

var mappingsCmd = &cobra.Command{
	Use:   "mappings",
	Short: "Export or import bucket mapping configuration",
}

var mappingsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the current campaign and UTM mappings as YAML",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		doc := mappingsDoc{
			Campaigns: env.Engine.Taxonomy().Campaigns(),
			UTM:       env.Engine.Taxonomy().UTM(),
		}

		out, err := yaml.Marshal(doc)
		if err != nil {
			return eris.Wrap(err, "marshal mappings")
		}

		if len(args) == 1 {
			if err := os.WriteFile(args[0], out, 0o644); err != nil {
				return eris.Wrapf(err, "write %s", args[0])
			}
			zap.L().Info("mappings exported", zap.String("path", args[0]))
			return nil
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

var mappingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace campaign and UTM mappings from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}

		var doc mappingsDoc
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if doc.Campaigns != nil {
			if err := env.Engine.SaveCampaignMappings(cmd.Context(), doc.Campaigns); err != nil {
				return err
			}
		}
		if doc.UTM != nil {
			if err := env.Engine.ReplaceUTMMappings(cmd.Context(), doc.UTM); err != nil {
				return err
			}
		}

		zap.L().Info("mappings imported",
			zap.String("path", args[0]),
			zap.Int("campaign_buckets", len(doc.Campaigns)),
			zap.Int("utm_tokens", len(doc.UTM)))
		return nil
	},
}

func init() {
	mappingsCmd.AddCommand(mappingsExportCmd)
	mappingsCmd.AddCommand(mappingsImportCmd)
	rootCmd.AddCommand(mappingsCmd)
}
