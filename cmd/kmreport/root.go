package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "kmreport",
	Short:         "Generate a survival-analysis report from a study dataset",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the report pipeline described by the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		lg, err := newLogger()
		if err != nil {
			return err
		}
		defer lg.Sync()

		return runReport(cfgPath, lg)
	},
}

func init() {
	runCmd.Flags().StringVarP(&cfgPath, "config", "c", "report.yaml", "report configuration file")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(runCmd)
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
