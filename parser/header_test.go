package parser

import "testing"

func TestParseResultTotal(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
		wantOK bool
	}{
		{
			name:   "streaming header uses the final number",
			header: "Results (50/219)",
			want:   219,
			wantOK: true,
		},
		{
			name:   "settled header",
			header: "Results (148)",
			want:   148,
			wantOK: true,
		},
		{
			name:   "count embedded in longer text",
			header: "Card List — Results (33) found",
			want:   33,
			wantOK: true,
		},
		{
			name:   "no parenthesized count",
			header: "Results",
			want:   0,
			wantOK: false,
		},
		{
			name:   "empty header",
			header: "",
			want:   0,
			wantOK: false,
		},
		{
			name:   "parentheses without digits",
			header: "Results (pending)",
			want:   0,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseResultTotal(tt.header)
			if ok != tt.wantOK {
				t.Fatalf("ParseResultTotal(%q) ok = %v, want %v", tt.header, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseResultTotal(%q) = %d, want %d", tt.header, got, tt.want)
			}
		})
	}
}
