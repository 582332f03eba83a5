package misc

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30", 30 * time.Second, false},
		{" 250ms ", 250 * time.Millisecond, false},
		{"1m30s", 90 * time.Second, false},
		{"0", 0, false},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDuration(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseDuration(%q)=%v want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		val    string
		want   bool
		wantOK bool
	}{
		{"yes", true, true},
		{" On ", true, true},
		{"OFF", false, true},
		{"0", false, true},
		{"", false, false},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			got, ok := ParseBool(tt.val)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("ParseBool(%q)=%v,%v want %v,%v", tt.val, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
