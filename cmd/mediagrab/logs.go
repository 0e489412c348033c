package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/five82/mediagrab/internal/config"
	"github.com/five82/mediagrab/internal/logging"
	"github.com/five82/mediagrab/internal/logtail"
)

func newLogsCmd(flags *globalFlags) *cobra.Command {
	var (
		lines     int
		level     string
		component string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the mediagrab log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			minLevel := zerolog.TraceLevel
			if level != "" {
				parsed, err := logging.ParseLevel(level)
				if err != nil {
					return err
				}
				minLevel = parsed
			}

			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := cfg.LogPath()
			raw, err := logtail.Read(path, lines)
			if err != nil {
				return err
			}

			entries := logtail.Filter(logtail.ParseLines(raw), minLevel, component)
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No log entries in %s\n", path)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(out, logtail.Format(e))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to read from the end of the log (0 for all)")
	cmd.Flags().StringVarP(&level, "level", "l", "", "Minimum level to show: debug, info, warn or error")
	cmd.Flags().StringVar(&component, "component", "", "Only show entries from this component")
	return cmd
}
