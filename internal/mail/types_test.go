package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplySubject(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Budget question", "Re: Budget question"},
		{"Re: Budget question", "Re: Budget question"},
		{"RE: Budget question", "RE: Budget question"},
		{"  spaced  ", "Re: spaced"},
		{"", "Re: (no subject)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Email{Subject: tt.subject}.ReplySubject())
	}
}
