package ids

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNewULID(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a, err := NewULID(now)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewULID(now)
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("length: %q %q", a, b)
	}
	if a == b {
		t.Fatal("two ids with fresh entropy collided")
	}

	parsed, err := ulid.Parse(a)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := ulid.Time(parsed.Time()); !got.Equal(now) {
		t.Fatalf("timestamp %v want %v", got, now)
	}
}

func TestNewULIDZeroTime(t *testing.T) {
	t.Parallel()

	id, err := NewULID(time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ulid.Parse(id); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestULIDsSortByTime(t *testing.T) {
	t.Parallel()

	early := MustULID(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	late := MustULID(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if !(early < late) {
		t.Fatalf("ids not time-ordered: %q vs %q", early, late)
	}
}
