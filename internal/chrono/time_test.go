package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGuadalajara(t *testing.T) {
	require.Equal(t, "America/Mexico_City", Guadalajara().String())
	require.Equal(t, Guadalajara(), NewStandardTime().Now().Location())
}

func TestFakeTime(t *testing.T) {
	start := time.Date(2025, time.January, 20, 8, 0, 0, 0, Guadalajara())
	clock := NewFakeTime(start)
	require.Equal(t, start, clock.Now())

	clock.Advance(time.Hour)
	require.Equal(t, start.Add(time.Hour), clock.Now())
}
