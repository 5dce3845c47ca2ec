package loans

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeFine(t *testing.T) {
	perDay := decimal.NewFromInt(5)
	now := date(2026, 3, 15)

	cases := []struct {
		name       string
		dueDate    *time.Time
		returnDate *time.Time
		want       string
	}{
		{
			name:       "five days late",
			dueDate:    ptr(date(2026, 3, 5)),
			returnDate: ptr(date(2026, 3, 10)),
			want:       "25",
		},
		{
			name:       "returned on due date",
			dueDate:    ptr(date(2026, 3, 10)),
			returnDate: ptr(date(2026, 3, 10)),
			want:       "0",
		},
		{
			name:       "returned early",
			dueDate:    ptr(date(2026, 3, 10)),
			returnDate: ptr(date(2026, 3, 8)),
			want:       "0",
		},
		{
			name:    "no due date",
			dueDate: nil,
			want:    "0",
		},
		{
			name:    "open loan accrues against today",
			dueDate: ptr(date(2026, 3, 12)),
			want:    "15",
		},
		{
			name:    "open loan not yet due",
			dueDate: ptr(date(2026, 3, 20)),
			want:    "0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeFine(tc.dueDate, tc.returnDate, now, perDay)
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestComputeFineFractionalRate(t *testing.T) {
	perDay := decimal.RequireFromString("2.50")
	got := ComputeFine(ptr(date(2026, 1, 1)), ptr(date(2026, 1, 4)), date(2026, 2, 1), perDay)
	if !got.Equal(decimal.RequireFromString("7.50")) {
		t.Fatalf("expected 7.50, got %s", got)
	}
}

func TestComputeFineIgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	returned := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	got := ComputeFine(&due, &returned, date(2026, 4, 1), decimal.NewFromInt(5))
	if !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected one day late, got %s", got)
	}
}

func ptr[T any](v T) *T { return &v }
