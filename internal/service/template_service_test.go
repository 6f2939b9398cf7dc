package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/pageflow/internal/models"
	"github.com/maheshrc27/pageflow/internal/transfer"
)

func TestTemplateFromRequest(t *testing.T) {
	tpl, err := templateFromRequest(&transfer.CreateTemplateRequest{
		Name:                "  evenings ",
		Times:               []string{"18:00", "21:30"},
		Days:                []string{"Mon", "fri"},
		RandomOffsetMinutes: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, "evenings", tpl.Name)
	assert.Equal(t, []string{"18:00", "21:30"}, tpl.Times)
	assert.Equal(t, []string{"Mon", "fri"}, tpl.Days)
	assert.Equal(t, 15, tpl.RandomOffsetMinutes)
}

func TestTemplateFromRequestDefaultsDays(t *testing.T) {
	tpl, err := templateFromRequest(&transfer.CreateTemplateRequest{
		Name:  "daily",
		Times: []string{"09:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AllWeekdays, tpl.Days)
}

func TestTemplateFromRequestNegativeOffsetZeroed(t *testing.T) {
	tpl, err := templateFromRequest(&transfer.CreateTemplateRequest{
		Name:                "daily",
		Times:               []string{"09:00"},
		RandomOffsetMinutes: -30,
	})
	require.NoError(t, err)
	assert.Zero(t, tpl.RandomOffsetMinutes)
}

func TestTemplateFromRequestRejects(t *testing.T) {
	cases := []struct {
		name string
		req  *transfer.CreateTemplateRequest
	}{
		{"blank name", &transfer.CreateTemplateRequest{Name: "  ", Times: []string{"09:00"}}},
		{"no times", &transfer.CreateTemplateRequest{Name: "x"}},
		{"bad clock", &transfer.CreateTemplateRequest{Name: "x", Times: []string{"25:00"}}},
		{"not a clock", &transfer.CreateTemplateRequest{Name: "x", Times: []string{"morning"}}},
		{"bad minute", &transfer.CreateTemplateRequest{Name: "x", Times: []string{"09:75"}}},
		{"bad weekday", &transfer.CreateTemplateRequest{Name: "x", Times: []string{"09:00"}, Days: []string{"funday"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := templateFromRequest(tc.req)
			assert.Error(t, err)
		})
	}
}

func TestValidClock(t *testing.T) {
	assert.True(t, validClock("00:00"))
	assert.True(t, validClock("23:59"))
	assert.True(t, validClock(" 9:05 "))
	assert.False(t, validClock("24:00"))
	assert.False(t, validClock("12"))
	assert.False(t, validClock("12:60"))
	assert.False(t, validClock("ab:cd"))
}
