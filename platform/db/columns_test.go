package db

import "testing"

func TestQualify(t *testing.T) {
	got := Qualify("q", "\n\tid, status,\n\tcreated_at")
	if got != " q.id, q.status, q.created_at" {
		t.Fatalf("unexpected qualified columns %q", got)
	}
}
