package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"bookmarkdl/pkg/config"
	"bookmarkdl/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage bookmarkdl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (BOOKMARKDL_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
	// config commands must work even when the current configuration is invalid
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file containing every option with its default value.

The file is created as '.bookmarkdl.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value ranges and durations
  - CSS selector syntax
  - That the retrieval tool can be found`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".bookmarkdl.yaml"
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		ui.PrintError("Configuration file already exists", path)
		fmt.Println("\nTo overwrite it, run again with --force")
		return errors.New("configuration file already exists")
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set platform.start_url to your bookmarks page to skip manual navigation")
	fmt.Println("2. Run 'bookmarkdl config validate' to check the configuration")
	fmt.Println("3. Start with 'bookmarkdl run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (BOOKMARKDL_*)")
	fmt.Println("3. .env file")
	if path := sourceFile(); path != "" {
		fmt.Printf("4. Configuration file: %s\n", path)
	} else {
		fmt.Println("4. Configuration file: (none found)")
	}
	fmt.Println("5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := sourceFile()
	if path == "" {
		ui.PrintError("No configuration file found", "Specify a file with --config")
		return errors.New("no configuration file found")
	}

	ui.PrintInfo("Validating configuration", path)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration has errors:")
		for _, e := range unjoin(err) {
			fmt.Printf("  - %s\n", e)
		}
		return errors.New("invalid configuration")
	}

	var warnings []string
	if _, err := exec.LookPath(cfg.Download.Tool); err != nil {
		warnings = append(warnings, fmt.Sprintf("retrieval tool %q not found in PATH", cfg.Download.Tool))
	}
	if cfg.Platform.StartURL == "" {
		warnings = append(warnings, "platform.start_url is empty, you will navigate to the bookmarks page by hand")
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			warnings = append(warnings, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Backup file: %s\n", cfg.Output.BackupFile)
	fmt.Printf("  Selectors: %d (+%d containers)\n", len(cfg.Collector.Selectors), len(cfg.Collector.ContainerSelectors))
	fmt.Printf("  Stall limit: %d, ceiling: %d\n", cfg.Collector.MaxStallAttempts, cfg.Collector.MaxTotalAttempts)
	fmt.Printf("  Item timeout: %s, pause: %s\n", cfg.Download.ItemTimeout, cfg.Download.Pause)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}

func sourceFile() string {
	if configFile != "" {
		return configFile
	}
	return config.FindConfigFile()
}

// unjoin splits an errors.Join result back into its parts
func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
