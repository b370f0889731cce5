package normalize

import "testing"

func TestEmail(t *testing.T) {
	if got := Email("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("Email normalization wrong: %q", got)
	}
}

func TestQuery(t *testing.T) {
	if got := Query("  Ali "); got != "ali" {
		t.Fatalf("Query normalization wrong: %q", got)
	}
}
