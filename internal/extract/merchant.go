// Package extract implements the SMS extraction pipeline: merchant
// extraction, per-rule matching, and the rule-set engine.
package extract

import (
	"strings"

	"github.com/karanved/smsledger/internal/model"
)

// maxMerchantRun bounds the merchant name when an attempt supplies only a
// start marker: the run ends at the next newline and is capped at 64 bytes.
const maxMerchantRun = 64

// ExtractMerchant returns the first successfully extracted, trimmed,
// non-empty merchant name from the ordered attempts, or
// model.UnknownMerchant when every attempt fails. Attempts that cannot
// locate their markers are skipped, not fatal.
func ExtractMerchant(body string, attempts []model.MerchantExtraction) string {
	for _, attempt := range attempts {
		if name := extractOne(body, attempt); name != "" {
			return name
		}
	}
	return model.UnknownMerchant
}

func extractOne(body string, attempt model.MerchantExtraction) string {
	switch {
	case attempt.StartText == "" && attempt.EndText == "":
		return ""

	case attempt.StartText == "":
		// Only an end marker: everything before its first occurrence.
		end := strings.Index(body, attempt.EndText)
		if end < 0 {
			return ""
		}
		return strings.TrimSpace(body[:end])

	default:
		start := nthIndex(body, attempt.StartText, attempt.StartIndex)
		if start < 0 {
			return ""
		}
		rest := body[start+len(attempt.StartText):]

		if attempt.EndText != "" {
			end := strings.Index(rest, attempt.EndText)
			if end < 0 {
				return ""
			}
			return strings.TrimSpace(rest[:end])
		}

		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		if len(rest) > maxMerchantRun {
			rest = rest[:maxMerchantRun]
		}
		return strings.TrimSpace(rest)
	}
}

// nthIndex returns the byte offset of the nth (1-based) occurrence of sub in
// s, or -1. A non-positive n is treated as 1.
func nthIndex(s, sub string, n int) int {
	if n < 1 {
		n = 1
	}
	offset := 0
	for i := 0; i < n; i++ {
		idx := strings.Index(s[offset:], sub)
		if idx < 0 {
			return -1
		}
		offset += idx
		if i < n-1 {
			offset += len(sub)
		}
	}
	return offset
}
