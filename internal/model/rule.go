package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionType indicates whether a rule or transaction records money
// leaving or entering an account.
type TransactionType string

// Transaction type constants.
const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// StringList is a JSON field that accepts either a single string or an array
// of strings. It always normalizes to a list so downstream logic is uniform.
type StringList []string

// UnmarshalJSON accepts "x" and ["x", "y"] forms.
func (s *StringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = StringList(many)
	return nil
}

// MerchantExtraction describes one attempt at locating a merchant name inside
// a message body. Any field may be empty; StartIndex is 1-based and defaults
// to the first occurrence.
type MerchantExtraction struct {
	StartText  string `json:"startText,omitempty"`
	EndText    string `json:"endText,omitempty"`
	StartIndex int    `json:"startIndex,omitempty"`
}

// ParserRule describes how to recognize and extract a transaction from one
// class of SMS messages. The JSON tags match the rule import/export format.
type ParserRule struct {
	CreatedAt           time.Time            `json:"created_at,omitempty"`
	UpdatedAt           time.Time            `json:"updated_at,omitempty"`
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Bank                string               `json:"bank,omitempty"`
	Type                TransactionType      `json:"type"`
	MerchantStartText   string               `json:"merchantStartText,omitempty"`
	MerchantEndText     string               `json:"merchantEndText,omitempty"`
	LastError           string               `json:"lastError,omitempty"`
	SenderPatterns      StringList           `json:"senderMatch"`
	AmountPatterns      StringList           `json:"amountRegex"`
	MerchantExtractions []MerchantExtraction `json:"merchantExtractions,omitempty"`
	MerchantConditions  StringList           `json:"merchantCondition,omitempty"`
	MerchantCleanup     StringList           `json:"merchantCommonPatterns,omitempty"`
	SkipPatterns        StringList           `json:"skipCondition,omitempty"`
	Priority            int                  `json:"priority"`
	MerchantStartIndex  int                  `json:"merchantStartIndex,omitempty"`
	SuccessCount        int                  `json:"successCount"`
	Enabled             bool                 `json:"enabled"`
}

// Normalized returns a copy of the rule with the legacy single-field merchant
// directives folded into the MerchantExtractions list, so the matcher only
// ever sees the list form.
func (r ParserRule) Normalized() ParserRule {
	if len(r.MerchantExtractions) == 0 &&
		(r.MerchantStartText != "" || r.MerchantEndText != "" || r.MerchantStartIndex > 0) {
		r.MerchantExtractions = []MerchantExtraction{{
			StartText:  r.MerchantStartText,
			EndText:    r.MerchantEndText,
			StartIndex: r.MerchantStartIndex,
		}}
	}
	return r
}

// Validate ensures the rule has the minimum shape required for matching.
func (r *ParserRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.Type != TypeExpense && r.Type != TypeIncome {
		return fmt.Errorf("rule type must be %q or %q, got %q", TypeExpense, TypeIncome, r.Type)
	}
	if len(r.SenderPatterns) == 0 {
		return fmt.Errorf("at least one sender pattern is required")
	}
	if len(r.AmountPatterns) == 0 {
		return fmt.Errorf("at least one amount pattern is required")
	}
	return nil
}
