package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var settingCmd = &cobra.Command{
	Use:   "setting",
	Short: "Read or write raw settings",
}

var settingGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingGet,
}

var settingSetCmd = &cobra.Command{
	Use:     "set <key> <json>",
	Short:   "Store a JSON value under key",
	Example: `  worklog setting set theme '"dark"'`,
	Args:    cobra.ExactArgs(2),
	RunE:    runSettingSet,
}

func init() {
	settingCmd.AddCommand(settingGetCmd)
	settingCmd.AddCommand(settingSetCmd)
}

func runSettingGet(cmd *cobra.Command, args []string) error {
	var v json.RawMessage
	ok, err := sess.ledger.GetSetting(cmd.Context(), args[0], &v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("setting %q is not set", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(v))
	return nil
}

func runSettingSet(cmd *cobra.Command, args []string) error {
	raw := json.RawMessage(args[1])
	if !json.Valid(raw) {
		return fmt.Errorf("value for %q is not valid JSON (quote strings: '\"text\"')", args[0])
	}
	ctx := cmd.Context()
	if err := sess.ledger.PutSetting(ctx, args[0], raw); err != nil {
		return err
	}
	afterChange(ctx)
	return nil
}
