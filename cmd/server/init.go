package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prasenjit/go-mocksim/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize mocksim with default configuration and directory structure",
	Long: `Creates the default configuration file (config.yaml) and data directory structure.

This command will:
  - Create config.yaml using file storage
  - Create data/mocks/ for mock configurations
  - Create data/models/ for API models

If config.yaml already exists, it will not be overwritten unless --force is used.`,
	RunE: runInit,
}

var (
	initForce bool
	initPath  string
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
	initCmd.Flags().StringVarP(&initPath, "path", "p", ".", "Path where to initialize (default: current directory)")
}

func runInit(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(initPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	configFile, err := writeInitialLayout(absPath, initForce)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file: %s\n", configFile)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Initialization complete! You can now start the server with:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  cd %s\n", absPath)
	fmt.Fprintln(out, "  mocksim serve")
	fmt.Fprintln(out)

	return nil
}

// writeInitialLayout creates the data directories and a config.yaml under
// dir and returns the config path
func writeInitialLayout(dir string, force bool) (string, error) {
	configFile := filepath.Join(dir, "config.yaml")
	dataDir := filepath.Join(dir, "data")

	if _, err := os.Stat(configFile); err == nil && !force {
		return "", fmt.Errorf("config.yaml already exists. Use --force to overwrite")
	}

	for _, d := range []string{
		dataDir,
		filepath.Join(dataDir, "mocks"),
		filepath.Join(dataDir, "models"),
	} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	cfg.Storage.Type = config.StorageFile
	cfg.Storage.Path = "./data"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate config: %w", err)
	}

	header := "# Mocksim configuration\n# Every key can be overridden with MOCKSIM_<SECTION>_<KEY>\n\n"
	if err := os.WriteFile(configFile, []byte(header+string(data)), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configFile, nil
}
