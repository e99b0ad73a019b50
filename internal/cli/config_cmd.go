package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"focusgate/internal/config"
)

var (
	showFormat string
	initForce  bool
)

func init() {
	configShowCmd.Flags().StringVarP(&showFormat, "format", "f", "toml", "output format: toml, json or yaml")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configValidateCmd, configShowCmd, configInitCmd, configSchemaCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate, show or create the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Check a config file against the schema and the semantic rules",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after defaults and env overrides",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema config files are checked against",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := cmd.OutOrStdout().Write(config.Schema())
		return err
	},
}

func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return resolveConfigPath()
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := pathArg(args)
	out := cmd.OutOrStdout()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	if err := config.ValidateFile(path); err != nil {
		return fmt.Errorf("%s: schema: %w", path, err)
	}
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for _, w := range config.Check(cfg).Warnings() {
		fmt.Fprintf(out, "warning: %s\n", w.Error())
	}
	fmt.Fprintf(out, "%s: ok\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(showFormat)
	switch format {
	case "toml", "json", "yaml", "yml":
	default:
		return fmt.Errorf("unknown format %q", showFormat)
	}
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := config.Encode(cfg, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ConfigPath()
	if len(args) > 0 {
		path = args[0]
	} else if configPath != "" {
		path = configPath
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
		return err
	}
	abs, _ := filepath.Abs(path)
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", abs)
	return nil
}
