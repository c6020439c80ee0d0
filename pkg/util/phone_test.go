package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"212-555-9999", "+12125559999"},
		{"(212) 555-1234", "+12125551234"},
		{"2125551234", "+12125551234"},
		{"12125551234", "+12125551234"},
		{"+12125559999", "+12125559999"},
		{" +1 (212) 555-9999 ", "+12125559999"},
		{"+44 20 7946 0958", "+442079460958"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	for _, in := range []string{"212-555-9999", "(646) 555-0100", "+442079460958"} {
		once := NormalizePhone(in)
		assert.Equal(t, once, NormalizePhone(once), in)
	}
}
