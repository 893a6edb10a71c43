package postgres

import (
	"strings"
	"testing"
)

func TestRedactStatement(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "String Literal Masked",
			query:    "SELECT id FROM users WHERE email = 'a@example.com'",
			expected: "SELECT id FROM users WHERE email = '?'",
		},
		{
			name:     "Escaped Quote Inside Literal",
			query:    "SELECT id FROM banks WHERE name = 'Sainsbury''s'",
			expected: "SELECT id FROM banks WHERE name = '?'",
		},
		{
			name:     "Numeric Literal Masked",
			query:    "SELECT id FROM transactions LIMIT 10 OFFSET 20",
			expected: "SELECT id FROM transactions LIMIT ? OFFSET ?",
		},
		{
			name:     "Placeholders Preserved",
			query:    "UPDATE transactions SET category_id = $1 WHERE id = $2",
			expected: "UPDATE transactions SET category_id = $1 WHERE id = $2",
		},
		{
			name:     "Multi Digit Placeholder Preserved",
			query:    "INSERT INTO t VALUES ($10, $11)",
			expected: "INSERT INTO t VALUES ($10, $11)",
		},
		{
			name:     "Decimal Literal Masked",
			query:    "SELECT * FROM transactions WHERE amount > 12.50",
			expected: "SELECT * FROM transactions WHERE amount > ?",
		},
		{
			name:     "Digits In Identifiers Kept",
			query:    "SELECT col2 FROM t1",
			expected: "SELECT col2 FROM t1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactStatement(tt.query); got != tt.expected {
				t.Errorf("redactStatement(%q) = %q, want %q", tt.query, got, tt.expected)
			}
		})
	}
}

func TestRedactStatement_Truncates(t *testing.T) {
	long := "SELECT " + strings.Repeat("a", 300)
	got := redactStatement(long)
	if len(got) != statementLimit+len("...") {
		t.Errorf("len = %d, want %d", len(got), statementLimit+len("..."))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected truncated query to end with ellipsis")
	}
}

func TestQueryVerb(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{"SELECT * FROM users", "SELECT"},
		{"  insert into banks VALUES ($1)", "INSERT"},
		{"COMMIT", "COMMIT"},
	}

	for _, tt := range tests {
		if got := queryVerb(tt.query); got != tt.expected {
			t.Errorf("queryVerb(%q) = %q, want %q", tt.query, got, tt.expected)
		}
	}
}
