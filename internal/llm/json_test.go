// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package llm

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			reply: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "fenced with tag",
			reply: "```json\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "fenced without tag",
			reply: "```\n[1,2,3]\n```",
			want:  `[1,2,3]`,
		},
		{
			name:  "prose around object",
			reply: `Sure! Here is the result: {"score":0.7} hope that helps.`,
			want:  `{"score":0.7}`,
		},
		{
			name:  "array before object",
			reply: `[{"id":1},{"id":2}] trailing text`,
			want:  `[{"id":1},{"id":2}]`,
		},
		{
			name:  "nested braces",
			reply: `{"w":{"genres":{"drama":0.4}}}`,
			want:  `{"w":{"genres":{"drama":0.4}}}`,
		},
		{
			name:    "no payload",
			reply:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "unterminated",
			reply:   `{"a":1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractJSON = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}
