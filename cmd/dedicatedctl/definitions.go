package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ngone6325/dedicated"
	"github.com/Ngone6325/dedicated/connection"
)

var definitionsCmd = &cobra.Command{
	Use:   "definitions [channel]...",
	Short: "Print the service definitions generated for channels",
	Long: `Generate the definitions for the given channels (default: the channels
in the config file) and print the resulting definition graph as yaml.
No database is opened.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close(cmd.Context())
		conns := connection.NewFactory(env.cfg, env.logger)
		defer conns.Close()

		b, err := env.builder(conns)
		if err != nil {
			return err
		}

		channels := args
		if len(channels) == 0 {
			channels = env.cfg.ChannelNames()
		}
		pass := dedicated.NewChannelPass(env.naming, env.logger)
		for _, ch := range channels {
			if err := pass.Materialize(b, ch); err != nil {
				return err
			}
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(b.Graph())
	},
}
