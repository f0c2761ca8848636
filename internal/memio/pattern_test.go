package memio

import (
	"strings"
	"testing"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr string
	}{
		{
			name:    "literal bytes",
			input:   "DE AD BE EF",
			wantLen: 4,
		},
		{
			name:    "wildcards in the middle",
			input:   "DE ?? ?? EF",
			wantLen: 4,
		},
		{
			name:    "trailing wildcard",
			input:   "6C 69 63 ??",
			wantLen: 4,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: "empty pattern",
		},
		{
			name:    "all wildcards",
			input:   "?? ?? ??",
			wantErr: "all wildcards",
		},
		{
			name:    "leading wildcard",
			input:   "?? DE AD",
			wantErr: "must not start with a wildcard",
		},
		{
			name:    "bad hex",
			input:   "DE ZZ",
			wantErr: "pattern byte 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePattern(tt.input)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %q does not contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", p.Len(), tt.wantLen)
			}
		})
	}
}

func TestPatternStringRoundTrip(t *testing.T) {
	const s = "DE AD ?? EF"
	p := MustPattern(s)
	if got := p.String(); got != s {
		t.Errorf("String() = %q, want %q", got, s)
	}
}

func TestPatternIndexIn(t *testing.T) {
	p := MustPattern("AA ?? CC")

	tests := []struct {
		name string
		data []byte
		from int
		want int
	}{
		{"match at start", []byte{0xAA, 0x00, 0xCC, 0x01}, 0, 0},
		{"match in middle", []byte{0x01, 0xAA, 0xFF, 0xCC}, 0, 1},
		{"wildcard matches anything", []byte{0xAA, 0x42, 0xCC}, 0, 0},
		{"match at end", []byte{0x00, 0x00, 0xAA, 0x11, 0xCC}, 0, 2},
		{"no match", []byte{0xAA, 0x00, 0xCD}, 0, -1},
		{"respects from", []byte{0xAA, 0x00, 0xCC, 0xAA, 0x01, 0xCC}, 1, 3},
		{"too short", []byte{0xAA, 0x00}, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.indexIn(tt.data, tt.from); got != tt.want {
				t.Errorf("indexIn() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMustPatternPanicsOnBadInput(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustPattern("?? ??")
}
