package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int {
	return &v
}

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected *int
	}{
		{
			name:     "plain grouped numeral",
			text:     "17,530",
			expected: intPtr(17530),
		},
		{
			name:     "grouped numeral with positive delta",
			text:     "17,530(+117)",
			expected: intPtr(17530),
		},
		{
			name:     "grouped numeral with negative delta",
			text:     "16,800(-200)",
			expected: intPtr(16800),
		},
		{
			name:     "multiple parenthesized annotations",
			text:     "17,530(+100)(-50)",
			expected: intPtr(17530),
		},
		{
			name:     "leading parenthesized annotation",
			text:     "(前日比)17,530",
			expected: intPtr(17530),
		},
		{
			name:     "currency symbol prefix",
			text:     "¥17,530",
			expected: intPtr(17530),
		},
		{
			name:     "surrounding whitespace",
			text:     "  17,530  ",
			expected: intPtr(17530),
		},
		{
			name:     "million scale grouping",
			text:     "1,234,567",
			expected: intPtr(1234567),
		},
		{
			name:     "grouped numeral beats earlier bare digits",
			text:     "価格17,530円と12345円があります",
			expected: intPtr(17530),
		},
		{
			name:     "broken grouping falls back to first digits",
			text:     "12,34a",
			expected: intPtr(12),
		},
		{
			name:     "comma litter falls back to first digits",
			text:     "1,2,3,",
			expected: intPtr(1),
		},
		{
			name:     "digits embedded in letters",
			text:     "abc123def",
			expected: intPtr(123),
		},
		{
			name:     "zero is a value",
			text:     "0",
			expected: intPtr(0),
		},
		{
			name:     "empty string",
			text:     "",
			expected: nil,
		},
		{
			name:     "no digits at all",
			text:     "invalid,number",
			expected: nil,
		},
		{
			name:     "only currency symbols",
			text:     "¥¥¥",
			expected: nil,
		},
		{
			name:     "only parenthesized content",
			text:     "(+117)",
			expected: nil,
		},
		{
			name:     "whitespace only",
			text:     "   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParsePriceText(tt.text)

			if tt.expected == nil {
				assert.Nil(t, result)
			} else {
				if assert.NotNil(t, result) {
					assert.Equal(t, *tt.expected, *result)
				}
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "full-width digits and comma",
			text:     "１７，５３０",
			expected: "17,530",
		},
		{
			name:     "full-width latin",
			text:     "１ｏｚ",
			expected: "1oz",
		},
		{
			name:     "ideographic space collapses",
			text:     "メイプルリーフ金貨　１オンス",
			expected: "メイプルリーフ金貨 1オンス",
		},
		{
			name:     "whitespace runs collapse and trim",
			text:     "  1 \t\n オンス  ",
			expected: "1 オンス",
		},
		{
			name:     "already normalized",
			text:     "金(g)",
			expected: "金(g)",
		},
		{
			name:     "empty",
			text:     "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeText(tt.text))
		})
	}
}
