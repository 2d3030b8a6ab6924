package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownMerchant is the sentinel merchant name used when no extraction
// attempt succeeds.
const UnknownMerchant = "unknown"

// Source identifies how a transaction entered the ledger.
type Source string

// Transaction source constants.
const (
	SourceSMS    Source = "sms"
	SourceManual Source = "manual"
	SourceCSV    Source = "csv"
)

// Transaction represents a single persisted financial transaction.
type Transaction struct {
	Date         time.Time
	CreatedAt    time.Time
	ID           string
	MerchantName string
	Category     string
	Notes        string
	Bank         string
	Currency     string
	Sender       string
	Source       Source
	Type         TransactionType
	Amount       decimal.Decimal
}

// idSeparator joins identity fields. The ASCII unit separator cannot occur in
// SMS text, so field boundaries are unambiguous.
const idSeparator = "\x1f"

// TransactionID derives the deterministic content identifier used as the
// primary key and the sole defense against duplicate ingestion. It is the hex
// SHA-256 of date (YYYY-MM-DD), amount (two fixed decimal places), merchant,
// sender and body, joined by 0x1F.
func TransactionID(date time.Time, amount decimal.Decimal, merchant, sender, body string) string {
	data := strings.Join([]string{
		date.Format("2006-01-02"),
		amount.StringFixed(2),
		merchant,
		sender,
		body,
	}, idSeparator)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ExtractedTransaction is a candidate produced by the extraction engine
// before identity assignment and duplicate checking. Amount is always
// positive; MerchantName defaults to UnknownMerchant.
type ExtractedTransaction struct {
	Timestamp    time.Time
	Rule         *ParserRule
	MerchantName string
	Sender       string
	Body         string
	Type         TransactionType
	Amount       decimal.Decimal
}

// ID derives the candidate's deterministic identifier.
func (e *ExtractedTransaction) ID() string {
	return TransactionID(e.Timestamp, e.Amount, e.MerchantName, e.Sender, e.Body)
}

// Transaction converts the candidate into a persistable transaction record.
func (e *ExtractedTransaction) Transaction(currency string) Transaction {
	bank := ""
	if e.Rule != nil {
		bank = e.Rule.Bank
	}
	return Transaction{
		ID:           e.ID(),
		Date:         e.Timestamp,
		Amount:       e.Amount,
		MerchantName: e.MerchantName,
		Bank:         bank,
		Currency:     currency,
		Sender:       e.Sender,
		Source:       SourceSMS,
		Type:         e.Type,
	}
}
