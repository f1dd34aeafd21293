package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gtv-remote/gtv-go/cmd/gtv-remote/commands"
)

var (
	viewLayer     string
	viewDirection string
	viewCategory  string
	viewOpcode    string

	exportFormat string
	exportOutput string

	filterOpts commands.FilterOptions
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and analyze protocol capture files",
	Long: `Protocol capture files are written with --protocol-log while running
connect, pair or shim.`,
}

var logViewCmd = &cobra.Command{
	Use:   "view [flags] <file.glog>",
	Short: "View a capture in human-readable format",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter commands.ViewFilter
		if viewLayer != "" {
			l, err := commands.ParseLayerFlag(viewLayer)
			if err != nil {
				return err
			}
			filter.Layer = &l
		}
		if viewDirection != "" {
			d, err := commands.ParseDirectionFlag(viewDirection)
			if err != nil {
				return err
			}
			filter.Direction = &d
		}
		if viewCategory != "" {
			c, err := commands.ParseCategoryFlag(viewCategory)
			if err != nil {
				return err
			}
			filter.Category = &c
		}
		filter.Opcode = viewOpcode
		return commands.RunView(args[0], filter, cmd.OutOrStdout())
	},
}

var logExportCmd = &cobra.Command{
	Use:   "export [flags] <file.glog>",
	Short: "Export a capture to JSON lines or CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commands.RunExport(args[0], exportFormat, exportOutput)
	},
}

var logFilterCmd = &cobra.Command{
	Use:   "filter [flags] <file.glog>",
	Short: "Write matching events to a new capture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := commands.RunFilter(args[0], filterOpts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Filtered %d events to %s\n", n, filterOpts.Output)
		return nil
	},
}

var logStatsCmd = &cobra.Command{
	Use:   "stats <file.glog>",
	Short: "Show statistics about a capture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commands.RunStats(args[0], cmd.OutOrStdout())
	},
}

func init() {
	logViewCmd.Flags().StringVar(&viewLayer, "layer", "", "Filter by layer (transport, protocol, session)")
	logViewCmd.Flags().StringVar(&viewDirection, "direction", "", "Filter by direction (in, out)")
	logViewCmd.Flags().StringVar(&viewCategory, "category", "", "Filter by category (message, control, state, error, command)")
	logViewCmd.Flags().StringVar(&viewOpcode, "opcode", "", "Filter messages by leading hex byte")

	logExportCmd.Flags().StringVar(&exportFormat, "format", "jsonl", "Output format (jsonl, csv)")
	logExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	f := logFilterCmd.Flags()
	f.StringVarP(&filterOpts.Output, "output", "o", "", "Output file (required)")
	f.StringVar(&filterOpts.ConnID, "conn-id", "", "Filter by connection ID")
	f.StringVar(&filterOpts.ThingID, "thing-id", "", "Filter by device name")
	f.StringVar(&filterOpts.Opcode, "opcode", "", "Filter messages by leading hex byte")
	f.StringVar(&filterOpts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	f.StringVar(&filterOpts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	f.StringVar(&filterOpts.Layer, "layer", "", "Filter by layer (transport, protocol, session)")
	f.StringVar(&filterOpts.Direction, "direction", "", "Filter by direction (in, out)")
	f.StringVar(&filterOpts.Category, "category", "", "Filter by category (message, control, state, error, command)")
	f.StringVar(&filterOpts.Mode, "mode", "", "Filter by session mode (normal, pin, shim)")
	_ = logFilterCmd.MarkFlagRequired("output")

	logCmd.AddCommand(logViewCmd, logExportCmd, logFilterCmd, logStatsCmd)
	rootCmd.AddCommand(logCmd)
}
