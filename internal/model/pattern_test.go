package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  PatternKind
		wantValue string
		wantFlags string
	}{
		{
			name:      "plain literal",
			raw:       "UPI txn",
			wantKind:  PatternLiteral,
			wantValue: "UPI txn",
		},
		{
			name:      "delimited regex",
			raw:       "/debited.*INR/i",
			wantKind:  PatternRegex,
			wantValue: "debited.*INR",
			wantFlags: "i",
		},
		{
			name:      "regex without flags",
			raw:       "/OTP [0-9]{6}/",
			wantKind:  PatternRegex,
			wantValue: "OTP [0-9]{6}",
		},
		{
			name:      "lone slash is literal",
			raw:       "/",
			wantKind:  PatternLiteral,
			wantValue: "/",
		},
		{
			name:      "slash in the middle is literal",
			raw:       "a/c balance",
			wantKind:  PatternLiteral,
			wantValue: "a/c balance",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePattern(tt.raw)
			assert.Equal(t, tt.wantKind, p.Kind)
			assert.Equal(t, tt.wantValue, p.Value)
			assert.Equal(t, tt.wantFlags, p.Flags)
		})
	}
}

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		text    string
		want    bool
		wantErr bool
	}{
		{
			name: "literal is case-insensitive substring",
			raw:  "otp",
			text: "Your OTP is 123456",
			want: true,
		},
		{
			name: "literal absent",
			raw:  "refund",
			text: "Rs.100 debited",
			want: false,
		},
		{
			name: "regex with i flag",
			raw:  "/DEBITED/i",
			text: "Rs.100 debited from a/c",
			want: true,
		},
		{
			name: "regex without i flag is case-sensitive",
			raw:  "/DEBITED/",
			text: "Rs.100 debited from a/c",
			want: false,
		},
		{
			name:    "invalid regex returns error",
			raw:     "/([0-9]+/",
			text:    "anything",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePattern(tt.raw).Match(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
