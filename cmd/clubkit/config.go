package main

import (
	"fmt"
	"os"

	"clubkit/pkg/config"
	"clubkit/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage clubkit configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (CLUBKIT_*, also read from .env)
  - Configuration file
  - Default values

Site selectors can only be changed in the configuration file.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every option at its default",
	Long: `Write a configuration file with every option at its default value.

The file is created as 'clubkit.yaml' in the current directory unless a path
is given with --config. An existing file is never overwritten.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging every source. The password is masked.`,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = "clubkit.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Store a login with 'clubkit auth login'")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'clubkit config validate'")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start crawling with 'clubkit crawl'")
	return nil
}

// maskedConfig returns a copy of cfg that is safe to print
func maskedConfig(cfg *config.Config) config.Config {
	display := *cfg
	if display.Credentials.Password != "" {
		display.Credentials.Password = "********"
	}
	return display
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	display := maskedConfig(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return err
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nConfiguration file: %s\n", source)
	return nil
}

// configWarnings lists settings that are valid but will likely stop a crawl
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if err := cfg.ValidateCredentials(); err != nil {
		warnings = append(warnings, "no login configured; 'clubkit auth login' or CLUBKIT_USERNAME/CLUBKIT_PASSWORD will be needed")
	}
	if cfg.Site.LoadTimeout < cfg.Site.SignalTimeout {
		warnings = append(warnings, "load_timeout is shorter than signal_timeout")
	}
	if cfg.Download.ConcurrentDownloads > 8 {
		warnings = append(warnings, "more than 8 concurrent downloads may be throttled by the site")
	}
	return warnings
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		ui.PrintWarning("No configuration file found, validating defaults and environment")
	} else {
		ui.PrintInfo("Validating configuration", path)
	}

	cfg, err := config.Load(path, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		ui.PrintError("Cannot create output directory", err.Error())
		return err
	}

	for _, w := range configWarnings(cfg) {
		ui.PrintWarning(w)
	}
	ui.PrintSuccess("Configuration is valid")
	return nil
}
