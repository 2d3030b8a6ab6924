package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/karanved/smsledger/internal/cli"
	"github.com/karanved/smsledger/internal/common"
	"github.com/karanved/smsledger/internal/model"
)

func importCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-csv <file.csv>",
		Short: "Import transactions from a CSV file",
		Long: `Import transactions from a CSV file with the header:

  date,amount,type,merchant,category,notes

Dates are YYYY-MM-DD. Amounts are recorded as positive values; the type
column decides expense vs income. Imported rows go through the same
content-identity duplicate check as scanned messages, so re-importing a
file is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportCSV,
	}

	cmd.Flags().String("currency", "INR", "currency code for imported transactions")
	cmd.Flags().BoolP("dry-run", "d", false, "preview import without saving")

	return cmd
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	currency, _ := cmd.Flags().GetString("currency")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := csvColumnIndex(header)
	if err != nil {
		return err
	}

	imported, skipped, failed := 0, 0, 0
	line := 1
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		line++
		if readErr != nil {
			slog.Warn("Skipping malformed CSV row", "line", line, "error", readErr)
			failed++
			continue
		}

		txn, rowErr := transactionFromCSV(record, cols, currency)
		if rowErr != nil {
			slog.Warn("Skipping invalid CSV row", "line", line, "error", rowErr)
			failed++
			continue
		}

		exists, existsErr := store.ExistsTransaction(ctx, txn.ID)
		if existsErr != nil {
			return existsErr
		}
		if exists {
			skipped++
			continue
		}

		if !dryRun {
			if insertErr := store.InsertTransaction(ctx, txn); insertErr != nil {
				slog.Error("Failed to import transaction", "line", line, "error", insertErr)
				failed++
				continue
			}
		}
		imported++
	}

	summary := fmt.Sprintf("Imported %d transactions (%d duplicates skipped, %d failed)",
		imported, skipped, failed)
	if dryRun {
		summary += " [dry run]"
	}
	fmt.Println(cli.FormatSuccess(summary))

	return nil
}

// csvColumns maps the expected header names to their positions.
type csvColumns struct {
	date     int
	amount   int
	txnType  int
	merchant int
	category int
	notes    int
}

func csvColumnIndex(header []string) (csvColumns, error) {
	cols := csvColumns{date: -1, amount: -1, txnType: -1, merchant: -1, category: -1, notes: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			cols.date = i
		case "amount":
			cols.amount = i
		case "type":
			cols.txnType = i
		case "merchant":
			cols.merchant = i
		case "category":
			cols.category = i
		case "notes":
			cols.notes = i
		}
	}
	if cols.date < 0 || cols.amount < 0 || cols.txnType < 0 {
		return cols, fmt.Errorf("%w: CSV header must include date, amount and type columns", common.ErrInvalidConfig)
	}
	return cols, nil
}

func transactionFromCSV(record []string, cols csvColumns, currency string) (model.Transaction, error) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	date, err := time.Parse("2006-01-02", field(cols.date))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid date %q: %w", field(cols.date), err)
	}

	amount, err := decimal.NewFromString(field(cols.amount))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount %q: %w", field(cols.amount), err)
	}
	amount = amount.Abs()

	txnType := model.TransactionType(field(cols.txnType))
	if txnType != model.TypeExpense && txnType != model.TypeIncome {
		return model.Transaction{}, fmt.Errorf("invalid type %q", field(cols.txnType))
	}

	merchant := field(cols.merchant)
	if merchant == "" {
		merchant = model.UnknownMerchant
	}

	// The raw row stands in for a message body so identical rows collapse to
	// one identity across imports.
	body := strings.Join(record, ",")

	return model.Transaction{
		ID:           model.TransactionID(date, amount, merchant, "", body),
		Date:         date,
		Amount:       amount,
		MerchantName: merchant,
		Category:     field(cols.category),
		Notes:        field(cols.notes),
		Currency:     currency,
		Source:       model.SourceCSV,
		Type:         txnType,
	}, nil
}
