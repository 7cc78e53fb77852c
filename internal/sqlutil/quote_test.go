package sqlutil

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"mv_player_data", `"mv_player_data"`},
		{"test_schema_2025", `"test_schema_2025"`},
		{"select", `"select"`},         // reserved word
		{"first name", `"first name"`}, // space in name
		{`odd"name`, `"odd""name"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestQualifiedName(t *testing.T) {
	if got := QualifiedName("test_schema_2025", "fpl_events"); got != `"test_schema_2025"."fpl_events"` {
		t.Errorf("QualifiedName = %q", got)
	}
	if got := QualifiedName("", "fpl_events"); got != `"fpl_events"` {
		t.Errorf("QualifiedName without schema = %q", got)
	}
}

func TestQuoteConnValue(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"secret", `'secret'`},
		{"it's", `'it\'s'`},
		{`back\slash`, `'back\\slash'`},
		{"with space", `'with space'`},
		{"", `''`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteConnValue(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteConnValue(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
