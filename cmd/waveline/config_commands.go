package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"waveline/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the resolved configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(rootConfigPath(cmd))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s", path)
			if !exists {
				fmt.Fprint(out, " (defaults; file not found)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Data dir:    %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Upload dir:  %s\n", cfg.Paths.UploadDir)
			fmt.Fprintf(out, "Output dir:  %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "Log dir:     %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "API bind:    %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "API auth:    %s\n", yesNo(cfg.Paths.APIToken != ""))
			fmt.Fprintf(out, "Upload max:  %d MiB (%s)\n", cfg.Upload.MaxSizeMiB, strings.Join(cfg.Upload.AllowedExtensions, " "))
			fmt.Fprintf(out, "FFmpeg:      %s\n", cfg.FFmpegBinary())
			fmt.Fprintf(out, "FFprobe:     %s\n", cfg.FFprobeBinary())
			fmt.Fprintf(out, "Workflow:    poll %ds, %d attempts, backoff %ds\n",
				cfg.Workflow.QueuePollInterval, cfg.Workflow.MaxAttempts, cfg.Workflow.RetryBackoffSeconds)
			fmt.Fprintf(out, "Cleanup:     enabled %s, every %dm, max age %dh\n",
				yesNo(cfg.Cleanup.Enabled), cfg.Cleanup.IntervalMinutes, cfg.Cleanup.MaxAgeHours)
			fmt.Fprintf(out, "Ntfy topic:  %s\n", cfg.Notifications.NtfyTopic)
			fmt.Fprintf(out, "Logging:     %s/%s\n", cfg.Logging.Format, cfg.Logging.Level)
			return nil
		},
	}
}

// rootConfigPath reads the persistent --config flag for commands that resolve
// configuration themselves instead of through the shared context.
func rootConfigPath(cmd *cobra.Command) string {
	if flag := cmd.Root().PersistentFlags().Lookup("config"); flag != nil {
		return flag.Value.String()
	}
	return ""
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to adjust storage paths and the API bind address before serving.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(rootConfigPath(cmd))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
