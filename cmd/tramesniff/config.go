package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/tramesniff/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration file",
	Long: `The configuration file holds preferences (default port, timeouts, feed
settings) and named sniff profiles. Command line flags always win over it.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Printf("# %s does not exist; showing defaults\n", path)
		} else {
			fmt.Printf("# %s\n", path)
		}

		data, err := yaml.Marshal(reg)
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with example profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		reg, err := config.CreateDefaultConfig()
		if err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %s\n", path)
		fmt.Printf("  Profiles: %v\n", reg.ProfileNames())
		return nil
	},
}

var configProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage named sniff profiles",
}

var profileSniff sniffFlags

var configProfileSetCmd = &cobra.Command{
	Use:     "set NAME",
	Short:   "Create or replace a profile",
	Example: `  tramesniff config profile set plc --baud 19200 --parity even`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Reread the file so edits made since this process started survive.
		reg, err := config.ReloadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		// Start from the profile being replaced, if any.
		profileSniff.profile = ""
		if reg.GetProfile(args[0]) != nil {
			profileSniff.profile = args[0]
		}
		cfg, err := profileSniff.resolve(cmd.Context(), cmd, reg, nil)
		if err != nil {
			return err
		}
		if err := reg.SetProfile(args[0], cfg); err != nil {
			return err
		}
		if err := config.SaveGlobal(); err != nil {
			return err
		}
		fmt.Printf("✓ Profile %s = %s\n", args[0], cfg)
		return nil
	},
}

var configProfileRmCmd = &cobra.Command{
	Use:     "rm NAME",
	Aliases: []string{"remove"},
	Short:   "Delete a profile",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.ReloadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if !reg.DeleteProfile(args[0]) {
			return fmt.Errorf("profile %q not found", args[0])
		}
		if err := config.SaveGlobal(); err != nil {
			return err
		}
		fmt.Printf("✓ Profile %s deleted\n", args[0])
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")

	profileSniff.register(configProfileSetCmd)
	_ = configProfileSetCmd.Flags().MarkHidden("profile")
	_ = configProfileSetCmd.Flags().MarkHidden("config-id")

	configProfileCmd.AddCommand(configProfileSetCmd, configProfileRmCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd, configProfileCmd)
	rootCmd.AddCommand(configCmd)
}
