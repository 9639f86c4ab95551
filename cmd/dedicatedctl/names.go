package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type channelNames struct {
	EntityManager string `yaml:"entity_manager"`
	Connection    string `yaml:"connection"`
	Registry      string `yaml:"registry"`
}

var namesCmd = &cobra.Command{
	Use:   "names <channel>...",
	Short: "Print the service ids synthesized for channels",
	Long: `Print the service ids synthesized for each channel as yaml.

Examples:
  dedicatedctl names order
  dedicatedctl names order payment --namespace app`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(cmd.Context())
		if err != nil {
			return err
		}
		defer env.close(cmd.Context())
		out := make(map[string]channelNames, len(args))
		for _, ch := range args {
			out[ch] = channelNames{
				EntityManager: env.naming.EntityManagerID(ch),
				Connection:    env.naming.ConnectionID(ch),
				Registry:      env.naming.RegistryID(ch),
			}
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(out)
	},
}
