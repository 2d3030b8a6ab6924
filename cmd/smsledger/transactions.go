package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/karanved/smsledger/internal/cli"
	"github.com/karanved/smsledger/internal/model"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "View recorded transactions",
	}

	cmd.AddCommand(transactionsListCmd())

	return cmd
}

func transactionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded transactions",
		RunE:  runTransactionsList,
	}

	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")

	return cmd
}

func runTransactionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fromFlag, _ := cmd.Flags().GetString("from")
	toFlag, _ := cmd.Flags().GetString("to")

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var txns []model.Transaction
	if fromFlag != "" || toFlag != "" {
		if fromFlag == "" || toFlag == "" {
			return fmt.Errorf("--from and --to must be used together")
		}
		from, parseErr := parseDate(fromFlag, "from")
		if parseErr != nil {
			return parseErr
		}
		to, parseErr := parseDate(toFlag, "to")
		if parseErr != nil {
			return parseErr
		}
		txns, err = store.ListTransactionsByRange(ctx, from, endOfDay(to))
	} else {
		txns, err = store.ListTransactions(ctx)
	}
	if err != nil {
		return err
	}

	if len(txns) == 0 {
		fmt.Println(cli.FormatWarning("No transactions recorded."))
		return nil
	}

	fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-10s %-8s %12s %-8s %-10s %s",
		"DATE", "TYPE", "AMOUNT", "CCY", "SOURCE", "MERCHANT")))
	for _, txn := range txns {
		fmt.Printf("%-10s %-8s %12s %-8s %-10s %s\n",
			txn.Date.Format("2006-01-02"),
			txn.Type,
			txn.Amount.StringFixed(2),
			txn.Currency,
			txn.Source,
			txn.MerchantName)
	}

	return nil
}
