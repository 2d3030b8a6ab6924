package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karanved/smsledger/internal/model"
)

// recordingBooks captures bookkeeping calls for assertions.
type recordingBooks struct {
	successes []string
	errors    []string
}

func (b *recordingBooks) RecordSuccess(_ context.Context, rule *model.ParserRule) {
	b.successes = append(b.successes, rule.Name)
}

func (b *recordingBooks) RecordError(_ context.Context, rule *model.ParserRule, err error) {
	rule.LastError = err.Error()
	b.errors = append(b.errors, rule.Name)
}

func testMessage(sender, body string) model.RawMessage {
	return model.RawMessage{
		Timestamp: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		Sender:    sender,
		Body:      body,
	}
}

func expenseRule(name string) model.ParserRule {
	return model.ParserRule{
		ID:             name,
		Name:           name,
		Enabled:        true,
		Type:           model.TypeExpense,
		SenderPatterns: model.StringList{"HDFCBK"},
		AmountPatterns: model.StringList{`Rs\.?\s*([0-9,.]+) debited`},
	}
}

func TestMatcherSenderMatch(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		pattern string
		want    MatchStatus
	}{
		{
			name:    "literal substring case-insensitive",
			sender:  "VM-HDFCBK",
			pattern: "hdfcbk",
			want:    StatusMatched,
		},
		{
			name:    "regex pattern",
			sender:  "AX-ICICIB-S",
			pattern: "^..-ICICIB",
			want:    StatusMatched,
		},
		{
			name:    "no match",
			sender:  "FRIEND",
			pattern: "HDFCBK",
			want:    StatusNoMatch,
		},
		{
			name:    "invalid regex never matches and never panics",
			sender:  "FRIEND",
			pattern: "([0-9]+",
			want:    StatusNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := expenseRule("r")
			rule.SenderPatterns = model.StringList{tt.pattern}

			res := NewMatcher(nil).Match(context.Background(),
				testMessage(tt.sender, "Rs.100.00 debited"), rule)

			assert.Equal(t, tt.want, res.Status)
		})
	}
}

func TestMatcherSkipCondition(t *testing.T) {
	rule := expenseRule("r")
	rule.SkipPatterns = model.StringList{"declined", "/REVERSED/i"}

	m := NewMatcher(nil)

	t.Run("literal skip", func(t *testing.T) {
		res := m.Match(context.Background(),
			testMessage("HDFCBK", "Rs.100.00 debited was DECLINED"), rule)
		assert.Equal(t, StatusSkipped, res.Status)
	})

	t.Run("regex skip", func(t *testing.T) {
		res := m.Match(context.Background(),
			testMessage("HDFCBK", "Rs.100.00 debited reversed successfully"), rule)
		assert.Equal(t, StatusSkipped, res.Status)
	})

	t.Run("no skip", func(t *testing.T) {
		res := m.Match(context.Background(),
			testMessage("HDFCBK", "Rs.100.00 debited"), rule)
		assert.Equal(t, StatusMatched, res.Status)
	})
}

func TestMatcherAmountExtraction(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		patterns model.StringList
		want     string
		status   MatchStatus
	}{
		{
			name:     "plain amount",
			body:     "Rs.250.00 debited",
			patterns: model.StringList{`Rs\.?\s*([0-9,.]+) debited`},
			want:     "250",
			status:   StatusMatched,
		},
		{
			name:     "negative amount normalized to positive",
			body:     "amount -500.00 debited",
			patterns: model.StringList{`amount (-?[0-9.]+)`},
			want:     "500",
			status:   StatusMatched,
		},
		{
			name:     "thousands separators removed",
			body:     "Rs.1,23,456.78 debited",
			patterns: model.StringList{`Rs\.?\s*([0-9,.]+) debited`},
			want:     "123456.78",
			status:   StatusMatched,
		},
		{
			name:     "second pattern used when first misses",
			body:     "INR 42.00 spent",
			patterns: model.StringList{`Rs\.([0-9.]+)`, `INR ([0-9.]+) spent`},
			want:     "42",
			status:   StatusMatched,
		},
		{
			name:     "non-numeric capture falls to next occurrence",
			body:     "ref no. abc, Rs.10.00 debited",
			patterns: model.StringList{`Rs\.?\s*([0-9,.]+) debited`},
			want:     "10",
			status:   StatusMatched,
		},
		{
			name:     "no amount means no match",
			body:     "your statement is ready",
			patterns: model.StringList{`Rs\.([0-9.]+)`},
			status:   StatusNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := expenseRule("r")
			rule.AmountPatterns = tt.patterns

			res := NewMatcher(nil).Match(context.Background(), testMessage("HDFCBK", tt.body), rule)

			require.Equal(t, tt.status, res.Status)
			if tt.status == StatusMatched {
				assert.Equal(t, tt.want, res.Amount.String())
			}
		})
	}
}

func TestMatcherInvalidAmountRegexRecordsError(t *testing.T) {
	books := &recordingBooks{}
	rule := expenseRule("broken")
	rule.AmountPatterns = model.StringList{`([0-9]+`}

	res := NewMatcher(books).Match(context.Background(),
		testMessage("HDFCBK", "Rs.100.00 debited"), rule)

	assert.Equal(t, StatusFailed, res.Status)
	assert.Error(t, res.Err)
	assert.Equal(t, []string{"broken"}, books.errors)
	assert.Empty(t, books.successes)
}

func TestMatcherInvalidRegexBesideValidPattern(t *testing.T) {
	// A broken pattern in the same rule fails silently as long as another
	// pattern succeeds.
	books := &recordingBooks{}
	rule := expenseRule("mixed")
	rule.AmountPatterns = model.StringList{`([0-9]+`, `Rs\.([0-9.]+) debited`}

	res := NewMatcher(books).Match(context.Background(),
		testMessage("HDFCBK", "Rs.100.00 debited"), rule)

	require.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, "100", res.Amount.String())
	assert.Equal(t, []string{"mixed"}, books.successes)
	assert.Empty(t, books.errors)
}

func TestMatcherMerchantPipeline(t *testing.T) {
	t.Run("extraction attempts", func(t *testing.T) {
		rule := expenseRule("r")
		rule.MerchantExtractions = []model.MerchantExtraction{
			{StartText: "at ", EndText: " on"},
		}

		res := NewMatcher(nil).Match(context.Background(),
			testMessage("HDFCBK", "Rs.250.00 debited at COFFEE SHOP on 15-03"), rule)

		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, "COFFEE SHOP", res.Merchant)
	})

	t.Run("legacy single-field directives", func(t *testing.T) {
		rule := expenseRule("r")
		rule.MerchantStartText = "at "
		rule.MerchantEndText = " on"

		res := NewMatcher(nil).Match(context.Background(),
			testMessage("HDFCBK", "Rs.250.00 debited at COFFEE SHOP on 15-03"), rule)

		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, "COFFEE SHOP", res.Merchant)
	})

	t.Run("condition fallback when attempts fail", func(t *testing.T) {
		rule := expenseRule("r")
		rule.MerchantExtractions = []model.MerchantExtraction{{StartText: "towards "}}
		rule.MerchantConditions = model.StringList{`for ([A-Z ]+)$`}

		res := NewMatcher(nil).Match(context.Background(),
			testMessage("HDFCBK", "Rs.250.00 debited for COFFEE SHOP"), rule)

		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, "COFFEE SHOP", res.Merchant)
	})

	t.Run("merchant may stay unknown", func(t *testing.T) {
		rule := expenseRule("r")

		res := NewMatcher(nil).Match(context.Background(),
			testMessage("HDFCBK", "Rs.250.00 debited"), rule)

		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, model.UnknownMerchant, res.Merchant)
	})

	t.Run("cleanup shrinks extracted name", func(t *testing.T) {
		rule := expenseRule("r")
		rule.MerchantExtractions = []model.MerchantExtraction{{StartText: "at "}}
		rule.MerchantCleanup = model.StringList{`^([A-Z]+) PVT LTD`}

		res := NewMatcher(nil).Match(context.Background(),
			testMessage("HDFCBK", "Rs.250.00 debited at SWIGGY PVT LTD BANGALORE"), rule)

		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, "SWIGGY", res.Merchant)
	})

	t.Run("first matching cleanup wins", func(t *testing.T) {
		rule := expenseRule("r")
		rule.MerchantExtractions = []model.MerchantExtraction{{StartText: "at "}}
		rule.MerchantCleanup = model.StringList{`(ZOMATO)`, `(SWIGGY)`}

		res := NewMatcher(nil).Match(context.Background(),
			testMessage("HDFCBK", "Rs.250.00 debited at SWIGGY ZOMATO JOINT"), rule)

		require.Equal(t, StatusMatched, res.Status)
		assert.Equal(t, "ZOMATO", res.Merchant)
	})
}

func TestMatcherRecordsSuccess(t *testing.T) {
	books := &recordingBooks{}
	rule := expenseRule("hdfc")

	res := NewMatcher(books).Match(context.Background(),
		testMessage("HDFCBK", "Rs.250.00 debited"), rule)

	require.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, []string{"hdfc"}, books.successes)
}

func TestGroupSkip(t *testing.T) {
	withSkip := expenseRule("a")
	withSkip.SkipPatterns = model.StringList{"EMI reminder"}
	plain := expenseRule("b")

	assert.True(t, GroupSkip("Your EMI reminder for Rs.5000", []model.ParserRule{plain, withSkip}))
	assert.False(t, GroupSkip("Rs.100 debited", []model.ParserRule{plain, withSkip}))
}
