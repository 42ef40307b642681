package llm

import "testing"

func TestExtractStatement(t *testing.T) {
	cases := []struct {
		name       string
		response   string
		want       string
		wantReason string
	}{
		{
			name:     "bare sql",
			response: "SELECT * FROM accounts",
			want:     "SELECT * FROM accounts",
		},
		{
			name:     "markdown fenced",
			response: "```sql\nSELECT account FROM accounts;\n```",
			want:     "SELECT account FROM accounts",
		},
		{
			name:     "fence without language",
			response: "```\nSELECT 1\n```",
			want:     "SELECT 1",
		},
		{
			name:     "trailing semicolon",
			response: "SELECT 1;",
			want:     "SELECT 1",
		},
		{
			name:     "semicolon inside string literal",
			response: "SELECT * FROM interactions WHERE comment = 'call; follow up'",
			want:     "SELECT * FROM interactions WHERE comment = 'call; follow up'",
		},
		{
			name:     "escaped quote inside literal",
			response: "SELECT * FROM accounts WHERE account = 'O''Brien; Inc'",
			want:     "SELECT * FROM accounts WHERE account = 'O''Brien; Inc'",
		},
		{
			name:       "empty output",
			response:   "   \n",
			wantReason: ReasonEmptyResponse,
		},
		{
			name:       "only semicolons",
			response:   ";;;",
			wantReason: ReasonUnparseable,
		},
		{
			name:       "multiple statements",
			response:   "SELECT 1; SELECT 2",
			wantReason: ReasonUnparseable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractStatement(tc.response)
			if tc.wantReason != "" {
				if err == nil {
					t.Fatalf("ExtractStatement() = %q, want error", got)
				}
				if err.Reason != tc.wantReason {
					t.Fatalf("reason = %q, want %q", err.Reason, tc.wantReason)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractStatement() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("ExtractStatement() = %q, want %q", got, tc.want)
			}
		})
	}
}
