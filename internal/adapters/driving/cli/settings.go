package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// secretKeys are masked when displayed.
var secretKeys = map[string]bool{
	"embedding.api_key": true,
	"vector.dsn":        true,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change chunking, embedding, storage and platform settings.

Settings are stored in config.toml in the configuration directory. Secrets
can also be supplied through the environment (OPENAI_API_KEY, GEMINI_API_KEY,
FUNDLINK_PG_DSN).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Long: `Change one setting. For embedding.api_key the value may be omitted, in
which case it is read from the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised setting keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

func init() {
	for _, c := range []*cobra.Command{settingsCmd, settingsShowCmd, settingsGetCmd, settingsSetCmd, settingsKeysCmd} {
		c.Annotations = map[string]string{scopeAnnotation: scopeSettings}
	}
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")

	section := ""
	for _, key := range svc.Keys() {
		value, err := svc.GetValue(key)
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", key, err)
		}

		group, name, _ := strings.Cut(key, ".")
		if group != section {
			cmd.Println()
			cmd.Printf("[%s]\n", group)
			section = group
		}
		cmd.Printf("  %s: %s\n", name, displayValue(key, value))
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	value, err := svc.GetValue(args[0])
	if err != nil {
		return err
	}
	cmd.Println(value)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case secretKeys[key]:
		if value, err = promptSecret(cmd, key); err != nil {
			return err
		}
	default:
		return fmt.Errorf("missing value for %s", key)
	}

	if err := svc.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("%s set to %s\n", key, displayValue(key, value))
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	for _, key := range svc.Keys() {
		cmd.Println(key)
	}
	return nil
}

func displayValue(key, value string) string {
	switch {
	case value == "":
		return "(not set)"
	case secretKeys[key]:
		return maskAPIKey(value)
	default:
		return value
	}
}

// promptSecret reads a secret without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, key string) (string, error) {
	cmd.Printf("%s: ", key)

	if in := cmd.InOrStdin(); in == os.Stdin && isTerminal(os.Stdin) {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", key, err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", key, err)
		}
		return "", errors.New("no value entered")
	}
	return line, nil
}

// maskAPIKey masks an API key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
