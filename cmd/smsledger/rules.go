package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/karanved/smsledger/internal/cli"
	"github.com/karanved/smsledger/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage SMS parser rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesEnableCmd())
	cmd.AddCommand(rulesDisableCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesImportCmd())
	cmd.AddCommand(rulesExportCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all parser rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListRules(ctx)
			if err != nil {
				return err
			}

			if len(rules) == 0 {
				fmt.Println(cli.FormatWarning("No parser rules configured. Add one with 'smsledger rules add'."))
				return nil
			}

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-36s %-20s %-8s %-8s %4s %8s  %s",
				"ID", "NAME", "TYPE", "ENABLED", "PRI", "MATCHES", "LAST ERROR")))
			for _, r := range rules {
				lastErr := r.LastError
				if len(lastErr) > 30 {
					lastErr = lastErr[:27] + "..."
				}
				fmt.Printf("%-36s %-20s %-8s %-8v %4d %8d  %s\n",
					r.ID, r.Name, r.Type, r.Enabled, r.Priority, r.SuccessCount, lastErr)
			}

			return nil
		},
	}
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a parser rule",
		Long: `Add a parser rule.

Sender and skip patterns may be literal substrings (matched
case-insensitively) or /pattern/flags regular expressions. Amount patterns
are regular expressions with exactly one capturing group for the numeric
amount.

Example:
  smsledger rules add --name "HDFC debit" --type expense \
    --sender HDFCBK --amount-regex 'Rs\.?\s*([0-9,.]+) debited' \
    --merchant-start "at " --merchant-end " on" --priority 10`,
		RunE: runRulesAdd,
	}

	cmd.Flags().String("name", "", "human-readable rule name")
	cmd.Flags().String("type", "expense", "transaction type (expense, income)")
	cmd.Flags().String("bank", "", "bank or payment-method label")
	cmd.Flags().Int("priority", 0, "evaluation priority (higher = tried first)")
	cmd.Flags().StringArray("sender", nil, "sender match pattern (repeatable)")
	cmd.Flags().StringArray("amount-regex", nil, "amount extraction regex with one capture group (repeatable)")
	cmd.Flags().String("merchant-start", "", "text preceding the merchant name")
	cmd.Flags().String("merchant-end", "", "text following the merchant name")
	cmd.Flags().Int("merchant-start-index", 0, "1-based occurrence of the start text to use")
	cmd.Flags().StringArray("skip", nil, "skip condition pattern (repeatable)")
	cmd.Flags().Bool("disabled", false, "create the rule disabled")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("sender")
	_ = cmd.MarkFlagRequired("amount-regex")

	return cmd
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	name, _ := cmd.Flags().GetString("name")
	ruleType, _ := cmd.Flags().GetString("type")
	bank, _ := cmd.Flags().GetString("bank")
	priority, _ := cmd.Flags().GetInt("priority")
	senders, _ := cmd.Flags().GetStringArray("sender")
	amounts, _ := cmd.Flags().GetStringArray("amount-regex")
	merchantStart, _ := cmd.Flags().GetString("merchant-start")
	merchantEnd, _ := cmd.Flags().GetString("merchant-end")
	merchantStartIndex, _ := cmd.Flags().GetInt("merchant-start-index")
	skips, _ := cmd.Flags().GetStringArray("skip")
	disabled, _ := cmd.Flags().GetBool("disabled")

	rule := model.ParserRule{
		ID:                 uuid.NewString(),
		Name:               name,
		Enabled:            !disabled,
		Bank:               bank,
		Priority:           priority,
		Type:               model.TransactionType(ruleType),
		SenderPatterns:     model.StringList(senders),
		AmountPatterns:     model.StringList(amounts),
		MerchantStartText:  merchantStart,
		MerchantEndText:    merchantEnd,
		MerchantStartIndex: merchantStartIndex,
		SkipPatterns:       model.StringList(skips),
	}

	if err := rule.Validate(); err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.CreateRule(ctx, &rule); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created rule %q (%s)", rule.Name, rule.ID)))
	return nil
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a rule as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rule, err := store.GetRule(ctx, args[0])
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(rule, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode rule: %w", err)
			}

			fmt.Println(string(data))
			return nil
		},
	}
}

func rulesEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleRule(cmd, args[0], true)
		},
	}
}

func rulesDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a rule without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleRule(cmd, args[0], false)
		},
	}
}

func toggleRule(cmd *cobra.Command, id string, enabled bool) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SetRuleEnabled(ctx, id, enabled); err != nil {
		return err
	}

	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s rule %s", verb, id)))
	return nil
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRule(ctx, args[0]); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted rule %s", args[0])))
			return nil
		},
	}
}

func rulesImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import rules from a JSON file",
		Long: `Import parser rules from a JSON array. Rules without an id are assigned
one. Import failures for individual rules are reported and do not abort
the rest of the batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read rules file: %w", err)
			}

			var rules []model.ParserRule
			if err := json.Unmarshal(data, &rules); err != nil {
				return fmt.Errorf("failed to parse rules file: %w", err)
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			imported := 0
			var failures []string
			for i := range rules {
				if rules[i].ID == "" {
					rules[i].ID = uuid.NewString()
				}
				if err := store.CreateRule(ctx, &rules[i]); err != nil {
					failures = append(failures, fmt.Sprintf("%s: %v", rules[i].Name, err))
					continue
				}
				imported++
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d of %d rules", imported, len(rules))))
			if len(failures) > 0 {
				fmt.Println(cli.FormatWarning("Failed:\n  " + strings.Join(failures, "\n  ")))
			}
			return nil
		},
	}
}

func rulesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.json]",
		Short: "Export all rules as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListRules(ctx)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(rules, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode rules: %w", err)
			}

			if len(args) == 1 {
				if err := os.WriteFile(args[0], data, 0600); err != nil {
					return fmt.Errorf("failed to write rules file: %w", err)
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d rules to %s", len(rules), args[0])))
				return nil
			}

			fmt.Println(string(data))
			return nil
		},
	}
}
