package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Wednesday.
var refNow = time.Date(2025, 6, 18, 15, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveDateExpression_Relative(t *testing.T) {
	r, err := ResolveDateExpression("today", refNow)
	require.NoError(t, err)
	require.Equal(t, day(2025, 6, 18), r.From)
	require.Equal(t, day(2025, 6, 18), r.To)

	r, err = ResolveDateExpression("Yesterday", refNow)
	require.NoError(t, err)
	require.Equal(t, day(2025, 6, 17), r.From)
	require.Equal(t, r.From, r.To)

	r, err = ResolveDateExpression("this week", refNow)
	require.NoError(t, err)
	require.Equal(t, day(2025, 6, 16), r.From) // most recent Monday
	require.Equal(t, day(2025, 6, 18), r.To)

	r, err = ResolveDateExpression("LAST WEEK", refNow)
	require.NoError(t, err)
	require.Equal(t, day(2025, 6, 9), r.From)
	require.Equal(t, day(2025, 6, 15), r.To)
}

func TestResolveDateExpression_ThisWeek_OnMonday(t *testing.T) {
	monday := time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC)
	r, err := ResolveDateExpression("this week", monday)
	require.NoError(t, err)
	require.Equal(t, day(2025, 6, 16), r.From)
	require.Equal(t, day(2025, 6, 16), r.To)
}

func TestResolveDateExpression_Absolute(t *testing.T) {
	cases := map[string]time.Time{
		"2025-03-07":   day(2025, 3, 7),
		"25/12/2024":   day(2024, 12, 25),
		"2024/12/25":   day(2024, 12, 25),
		" 2025-03-07 ": day(2025, 3, 7),
	}
	for in, want := range cases {
		r, err := ResolveDateExpression(in, refNow)
		require.NoError(t, err, in)
		require.Equal(t, want, r.From, in)
		require.Equal(t, want, r.To, in)
	}
}

func TestResolveDateExpression_SlashAmbiguity(t *testing.T) {
	// Day-first wins when both readings are plausible.
	r, err := ResolveDateExpression("01/02/2025", refNow)
	require.NoError(t, err)
	require.Equal(t, day(2025, 2, 1), r.From)

	// Day-first cannot parse 12/25 -> month-first fallback.
	r, err = ResolveDateExpression("12/25/2024", refNow)
	require.NoError(t, err)
	require.Equal(t, day(2024, 12, 25), r.From)
}

func TestResolveDateExpression_Invalid(t *testing.T) {
	for _, in := range []string{"", "soonish", "2025-13-40", "next week"} {
		_, err := ResolveDateExpression(in, refNow)
		require.ErrorIs(t, err, ErrInvalidDateExpression, in)
	}
}

func TestResolveDateExpression_Idempotent(t *testing.T) {
	first, err := ResolveDateExpression("last week", refNow)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ResolveDateExpression("last week", refNow)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}
