package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected Date
	}{
		{"2025-03-14", Date{2025, time.March, 14}},
		{" 2025-03-14 ", Date{2025, time.March, 14}},
		{"2025-03-14T00:00:00Z", Date{2025, time.March, 14}},
		{"2025-03-14T00:00:00+05:30", Date{2025, time.March, 14}},
		{"2025-03-14 00:00:00", Date{2025, time.March, 14}},
		{"2025-03-14 00:00:00+00:00", Date{2025, time.March, 14}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "yesterday", "2025-13-01", "14/03/2025"} {
		_, err := ParseDate(input)
		assert.Error(t, err, input)
	}
}

func TestDateCompareAndArithmetic(t *testing.T) {
	d := Date{2024, time.December, 31}
	next := d.AddDays(1)

	assert.Equal(t, Date{2025, time.January, 1}, next)
	assert.True(t, d.Before(next))
	assert.True(t, next.After(d))
	assert.Equal(t, 0, d.Compare(Date{2024, time.December, 31}))
	assert.Equal(t, time.Tuesday, d.Weekday())
}

func TestDateJSON(t *testing.T) {
	d := Date{2025, time.February, 3}
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-02-03"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)
}

func TestDateOfUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	instant := time.Date(2025, time.May, 1, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, Date{2025, time.May, 1}, DateOf(instant))
	assert.Equal(t, Date{2025, time.May, 2}, DateOf(instant.In(kolkata)))
}
