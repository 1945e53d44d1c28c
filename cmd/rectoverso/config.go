package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/rectoverso/internal/config"
	"github.com/jackzampolin/rectoverso/internal/home"
)

var (
	configForce bool
	configWatch bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to the home directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		path := h.ConfigPath()
		if cfgFile != "" {
			path = cfgFile
		}
		if fileExists(path) && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (file, environment and defaults merged)",
	Long: `Print the effective configuration.

With --watch the configuration file is watched and printed again after every
valid change until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		if err := output(cmd, env.config); err != nil {
			return err
		}
		if !configWatch {
			return nil
		}
		if env.cfgMgr.ConfigFile() == "" {
			return fmt.Errorf("no config file to watch (run \"rectoverso config init\")")
		}

		changed := make(chan *config.Config, 1)
		env.cfgMgr.OnChange(func(c *config.Config) {
			select {
			case changed <- c:
			default:
			}
		})
		env.cfgMgr.WatchConfig()
		env.logger.Info("watching config", "file", env.cfgMgr.ConfigFile())

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case c := <-changed:
				if err := output(cmd, c); err != nil {
					return err
				}
			}
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value, e.g. pipeline.pages_per_batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		value, err := env.cfgMgr.Lookup(args[0])
		if err != nil {
			return err
		}
		return output(cmd, map[string]any{args[0]: value})
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the documented configuration keys and their defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output(cmd, entryTable(config.DefaultEntries()))
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
	configShowCmd.Flags().BoolVar(&configWatch, "watch", false, "print the configuration again whenever the file changes")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configKeysCmd)
}

type entryTable []config.Entry

func (t entryTable) Header() []string {
	return []string{"KEY", "DEFAULT", "DESCRIPTION"}
}

func (t entryTable) Rows() [][]string {
	rows := make([][]string, len(t))
	for i, e := range t {
		rows[i] = []string{e.Key, fmt.Sprint(e.Value), e.Description}
	}
	return rows
}
