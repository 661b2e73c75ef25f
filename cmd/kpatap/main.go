package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alfredjeanlab/kpatap/internal/config"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "kpatap",
	Short: "Extract records from the KPA EHS forms API",
	Long: `kpatap discovers the streams exposed by a KPA EHS account (one per
form, plus the fixed roles/users/lines-of-business streams) and syncs their
records as line-delimited JSON, tracking an incremental bookmark per form.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the TOML config file")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(syncCmd)
}

func defaultConfigPath() string {
	if p := os.Getenv("KPATAP_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("kpatap.toml"); err == nil {
		return "kpatap.toml"
	}
	return ""
}

// loadConfig reads the config file and makes sure a token is available,
// prompting on the terminal as a last resort.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.AccessToken == "" {
		token, err := promptToken()
		if err != nil {
			return nil, err
		}
		cfg.AccessToken = token
	}
	return cfg, nil
}

func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("access_token is required (set it in the config file or KPATAP_ACCESS_TOKEN)")
	}
	fmt.Fprint(os.Stderr, "KPA access token: ")
	token, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	if len(token) == 0 {
		return "", errors.New("empty access token")
	}
	return string(token), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
