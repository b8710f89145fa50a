package specialist

import "testing"

func TestParseReport(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantNil   bool
		wantScore int
	}{
		{
			name: "fenced block at end",
			text: "## Market\nBig.\n\n```json\n{\"summary\":\"Large market\",\"score\":78,\"bullets\":[\"a\"]}\n```\n",
			wantScore: 78,
		},
		{
			name: "last valid block wins",
			text: "```json\n{\"summary\":\"first\",\"score\":10}\n```\ntext\n```json\n{\"summary\":\"second\",\"score\":90}\n```",
			wantScore: 90,
		},
		{
			name: "falls back past invalid last block",
			text: "```json\n{\"summary\":\"ok\",\"score\":55}\n```\n```json\n{not json}\n```",
			wantScore: 55,
		},
		{
			name: "bare trailing object",
			text: "Analysis here.\n{\"summary\":\"bare\",\"score\":40}",
			wantScore: 40,
		},
		{
			name:    "out of range score",
			text:    "```json\n{\"summary\":\"x\",\"score\":140}\n```",
			wantNil: true,
		},
		{
			name:    "no report",
			text:    "Just prose about risk.",
			wantNil: true,
		},
		{
			name:      "unterminated fence still yields trailing object",
			text:      "```json\n{\"summary\":\"x\",\"score\":1}",
			wantScore: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ParseReport(tt.text)
			if tt.wantNil {
				if r != nil {
					t.Errorf("ParseReport() = %+v, want nil", r)
				}
				return
			}
			if r == nil {
				t.Fatal("ParseReport() = nil, want report")
			}
			if r.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", r.Score, tt.wantScore)
			}
		})
	}
}
