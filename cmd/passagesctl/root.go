package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var flags rootFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "passagesctl",
		Short:         "Inspect narrative collections and replay walks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(flags.envFile)
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "configs/passages.yaml", "Configuration file path")
	pf.StringVar(&flags.envFile, "env", ".env", "Optional environment file")
	pf.StringVar(&flags.routesFile, "routes", "", "Read routes from a local GeoJSON file instead of the configured source")
	pf.StringVar(&flags.metadataFile, "metadata", "", "Metadata GeoJSON file (with --routes)")
	pf.BoolVar(&flags.json, "json", false, "Print JSON instead of a table")

	rootCmd.AddCommand(newNarrativesCommand(ctx))
	rootCmd.AddCommand(newWalkCommand(ctx))

	return rootCmd
}
