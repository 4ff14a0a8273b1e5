package redis

import "testing"

func TestParseRangeString(t *testing.T) {
	tests := []struct {
		in        string
		wantStart uint64
		wantEnd   uint64
		wantErr   bool
	}{
		{"100-200", 100, 200, false},
		{"0-0", 0, 0, false},
		{"42-42", 42, 42, false},
		{"200-100", 0, 0, true},
		{"100", 0, 0, true},
		{"abc-200", 0, 0, true},
		{"100-xyz", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tt := range tests {
		start, end, err := ParseRangeString(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRangeString(%q) succeeded, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRangeString(%q) returned %v", tt.in, err)
			continue
		}
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("ParseRangeString(%q) = (%d, %d), want (%d, %d)",
				tt.in, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}
