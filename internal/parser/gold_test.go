package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldExtractor_ExtractPrice(t *testing.T) {
	extractor := NewGoldExtractor(DefaultOptions())

	tests := []struct {
		name     string
		html     string
		expected *int
	}{
		{
			name: "standard price table row",
			html: `<html><body><table>
				<tr><td>金(g)</td><td>17,530(+117)</td><td>17,640</td></tr>
				<tr><td>銀(g)</td><td>195(+2)</td><td>197</td></tr>
			</table></body></html>`,
			expected: intPtr(17530),
		},
		{
			name: "bare short label without unit marker",
			html: `<html><body><table>
				<tr><td>金</td><td>17,530</td><td>-</td></tr>
			</table></body></html>`,
			expected: intPtr(17530),
		},
		{
			name: "second cell unparsable falls through to third",
			html: `<html><body><table>
				<tr><td>金(g)</td><td>前日比</td><td>16,000(-50)</td></tr>
			</table></body></html>`,
			expected: intPtr(16000),
		},
		{
			name: "second cell out of range falls through to third",
			html: `<html><body><table>
				<tr><td>金(g)</td><td>50,000</td><td>17,530</td></tr>
			</table></body></html>`,
			expected: intPtr(17530),
		},
		{
			name: "long descriptive first cell does not qualify",
			html: `<html><body><table>
				<tr><td>金の相場については以下を参照</td><td>5,000</td><td>-</td></tr>
			</table></body></html>`,
			expected: nil,
		},
		{
			name: "row with fewer than three cells uses free-text fallback",
			html: `<html><body><table>
				<tr><td>金(g)</td><td>17,530</td></tr>
			</table></body></html>`,
			expected: intPtr(17530),
		},
		{
			name:     "free text without any table",
			html:     `<html><body><p>本日の金価格は17,530円です</p></body></html>`,
			expected: intPtr(17530),
		},
		{
			name:     "free text values outside range are rejected",
			html:     `<html><body><p>会員数5,000人、アクセス50,000件</p></body></html>`,
			expected: nil,
		},
		{
			name:     "in-range value amid out-of-range noise",
			html:     `<html><body><p>会員数5,000人、金17,530円、アクセス50,000件</p></body></html>`,
			expected: intPtr(17530),
		},
		{
			name: "table match wins over differing free text",
			html: `<html><body>
				<p>キャンペーン価格 15,000円</p>
				<table><tr><td>金(g)</td><td>17,530</td><td>-</td></tr></table>
			</body></html>`,
			expected: intPtr(17530),
		},
		{
			name: "first qualifying row wins across tables",
			html: `<html><body>
				<table><tr><td>金(g)</td><td>17,530</td><td>-</td></tr></table>
				<table><tr><td>金(g)</td><td>18,200</td><td>-</td></tr></table>
			</body></html>`,
			expected: intPtr(17530),
		},
		{
			name:     "empty document",
			html:     ``,
			expected: nil,
		},
		{
			name:     "no numerals anywhere",
			html:     `<html><body><p>本日は休業日です</p></body></html>`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := extractor.ExtractPrice(tt.html)
			require.NoError(t, err)

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

func TestGoldExtractor_IsGoldRow(t *testing.T) {
	extractor := NewGoldExtractor(DefaultOptions())

	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{name: "label with unit", text: "金(g)", expected: true},
		{name: "bare label", text: "金", expected: true},
		{name: "short label without unit", text: "金相場", expected: true},
		{name: "silver with unit", text: "銀(g)", expected: false},
		{name: "platinum", text: "プラチナ", expected: false},
		{name: "long text naming gold", text: "金の本日の小売価格について", expected: false},
		{name: "empty", text: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractor.isGoldRow(tt.text))
		})
	}
}

func TestGoldExtractor_CustomOptions(t *testing.T) {
	extractor := NewGoldExtractor(Options{
		GoldMarker:    "銀",
		UnitMarker:    "g",
		ShortLabelMax: 5,
		MinValidPrice: 100,
		MaxValidPrice: 500,
	})

	html := `<html><body><table>
		<tr><td>金(g)</td><td>17,530</td><td>-</td></tr>
		<tr><td>銀(g)</td><td>195</td><td>-</td></tr>
	</table></body></html>`

	result, err := extractor.ExtractPrice(html)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 195, *result)
}

func TestGoldExtractor_Idempotent(t *testing.T) {
	extractor := NewGoldExtractor(DefaultOptions())
	html := `<html><body><table><tr><td>金(g)</td><td>17,530</td><td>-</td></tr></table></body></html>`

	first, err := extractor.ExtractPrice(html)
	require.NoError(t, err)
	second, err := extractor.ExtractPrice(html)
	require.NoError(t, err)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}
