package kanban

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMentions(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "single mention",
			body: "@ana can you review?",
			want: []string{"ana"},
		},
		{
			name: "several mentions keep first-seen order",
			body: "thanks @Luis and @ana, cc @luis",
			want: []string{"luis", "ana"},
		},
		{
			name: "email addresses are not mentions",
			body: "send it to ana@client.com please",
			want: nil,
		},
		{
			name: "punctuation before the at sign",
			body: "(@maria) ping,@juan.pablo",
			want: []string{"maria", "juan.pablo"},
		},
		{
			name: "trailing period is dropped",
			body: "over to you @carlos.",
			want: []string{"carlos"},
		},
		{
			name: "too short",
			body: "@a is not a handle",
			want: nil,
		},
		{
			name: "too long",
			body: "@" + strings.Repeat("x", 33),
			want: nil,
		},
		{
			name: "longest allowed",
			body: "@" + strings.Repeat("y", 32),
			want: []string{strings.Repeat("y", 32)},
		},
		{
			name: "double at sign",
			body: "@@ana",
			want: nil,
		},
		{
			name: "newline before mention",
			body: "done\n@design_team",
			want: []string{"design_team"},
		},
		{
			name: "no mentions",
			body: "plain comment",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMentions(tt.body))
		})
	}
}
