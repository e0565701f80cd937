package main

import "github.com/spf13/cobra"

// Flag structs decouple cobra from logic for testing.

type serveFlags struct {
	Config string
}

func (f *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Config, "config", "pagewatch.toml", "path to TOML config file")
}

type replayFlags struct {
	File string
}

func (f *replayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.File, "file", "-", "navigation log to replay ('-' for stdin)")
}
