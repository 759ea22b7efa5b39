package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration after files, environment and flags are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			cfg.Storage.Redis.Password = mask(cfg.Storage.Redis.Password)
			cfg.DevServer.JWTSecret = mask(cfg.DevServer.JWTSecret)
			if a.flagOutput == formatJSON {
				return writeJSON(a.out, cfg)
			}
			enc := yaml.NewEncoder(a.out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
