package google

import "testing"

func TestFindUserRow(t *testing.T) {
	rows := [][]interface{}{
		{"user", "document", "updated"},
		{},
		{" alice ", "{}", "2026-01-01T00:00:00Z"},
		{"bob"},
		{"alice", "dup"},
	}
	tests := []struct {
		user string
		want int
	}{
		{"alice", 2},
		{"bob", 3},
		{"carol", -1},
	}
	for _, tt := range tests {
		if got := findUserRow(rows, tt.user); got != tt.want {
			t.Errorf("findUserRow(%q) = %d, want %d", tt.user, got, tt.want)
		}
	}
}

func TestSafeGet(t *testing.T) {
	row := toStrings([]interface{}{"a", 12, nil})
	if safeGet(row, 1) != "12" {
		t.Errorf("expected number formatted as string, got %q", safeGet(row, 1))
	}
	if safeGet(row, 5) != "" || safeGet(row, -1) != "" {
		t.Error("out of range should be empty")
	}
}
