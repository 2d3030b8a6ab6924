package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/karanved/smsledger/internal/cli"
	"github.com/karanved/smsledger/internal/common"
	"github.com/karanved/smsledger/internal/scan"
	"github.com/karanved/smsledger/internal/sms"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan an SMS backup for transactions",
		Long: `Scan raw SMS messages from an exported backup file against the configured
parser rules and record the extracted transactions.

Duplicate messages are detected by content identity and skipped, so
re-scanning the same backup is safe.

Examples:
  # Scan last month's messages from an SMS Backup & Restore export
  smsledger scan --input sms-backup.xml --from 2024-01-01 --to 2024-01-31

  # Preview without persisting
  smsledger scan --input messages.json --dry-run`,
		RunE: runScan,
	}

	cmd.Flags().StringP("input", "i", "", "SMS backup file (.xml or .json)")
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD, default: 30 days ago)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD, default: today)")
	cmd.Flags().BoolP("dry-run", "d", false, "extract without persisting")
	cmd.Flags().String("currency", "INR", "currency code for recorded transactions")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	input, _ := cmd.Flags().GetString("input")
	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	currency, _ := cmd.Flags().GetString("currency")

	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := endOfDay(now)

	var err error
	if fromFlag != "" {
		if from, err = parseDate(fromFlag, "from"); err != nil {
			return err
		}
	}
	if toFlag != "" {
		parsed, parseErr := parseDate(toFlag, "to")
		if parseErr != nil {
			return parseErr
		}
		to = endOfDay(parsed)
	}

	source, err := sms.NewSourceFromFile(input)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	scanner := scan.NewWithConfig(store, store, source, scan.Config{
		Currency: currency,
		DryRun:   dryRun,
	})

	var bar *progressbar.ProgressBar
	scanner.OnProgress(func(p scan.Progress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Scanning messages..."),
			)
		}
		_ = bar.Set(p.Done)
	})

	summary, err := scanner.Scan(ctx, from, to)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNoEnabledRules):
			return common.NewUserError("no enabled parser rules; add rules with 'smsledger rules add'", err)
		case errors.Is(err, common.ErrNoMessages):
			return common.NewUserError("no messages found in the requested window", err)
		default:
			return err
		}
	}

	fmt.Println(renderScanSummary(summary, dryRun))
	return nil
}

func renderScanSummary(summary *scan.Summary, dryRun bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Messages scanned: %d\n", summary.TotalScanned)
	fmt.Fprintf(&b, "Transactions recorded: %d\n", summary.Processed)
	fmt.Fprintf(&b, "Skipped (no match or duplicate): %d\n", summary.Skipped)
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "Write failures: %d\n", summary.Failed)
	}

	if len(summary.Accepted) > 0 {
		b.WriteString("\n")
		for _, txn := range summary.Accepted {
			fmt.Fprintf(&b, "  %s  %-8s %10s  %s\n",
				txn.Date.Format("2006-01-02"),
				txn.Type,
				txn.Amount.StringFixed(2),
				txn.MerchantName)
		}
	}

	title := "Scan Results"
	if dryRun {
		title += " (dry run)"
	}

	return cli.RenderBox(title, strings.TrimRight(b.String(), "\n"))
}
