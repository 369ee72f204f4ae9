package main

import (
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string

	cfg *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// serverURL resolves the daemon base URL: the --server flag wins, then the
// configured API bind address.
func (c *commandContext) serverURL() (string, error) {
	if addr := strings.TrimSpace(*c.serverFlag); addr != "" {
		return normalizeServerURL(addr), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	return normalizeServerURL(cfg.Paths.APIBind), nil
}

func normalizeServerURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	return "http://" + strings.TrimRight(addr, "/")
}

func newRootCommand() *cobra.Command {
	var serverFlag string
	var configFlag string

	ctx := &commandContext{serverFlag: &serverFlag, configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "revoice",
		Short:         "Revoice CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Daemon API address (host:port or URL)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newHealthCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
