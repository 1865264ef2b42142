package logging

import (
	"testing"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"console default level", "", "console", false},
		{"json debug", "debug", "json", false},
		{"warn console", "warn", "", false},
		{"bad level", "loud", "json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Init(tt.level, tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if L == nil {
				t.Fatal("logger should never be nil")
			}
		})
	}
}

func TestSync_NoPanic(t *testing.T) {
	Sync()
}
