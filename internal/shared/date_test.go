package shared

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	var payload struct {
		Date Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-03-01"}`), &payload))
	assert.Equal(t, "2026-03-01", payload.Date.String())

	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-03-01T23:30:00+05:00"}`), &payload))
	assert.Equal(t, "2026-03-01", payload.Date.String())

	err := json.Unmarshal([]byte(`{"date":"01/03/2026"}`), &payload)
	assert.ErrorIs(t, err, ErrValidation)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-03-01"}`, string(out))
}

func TestNewDateUsesLocalDay(t *testing.T) {
	karachi := time.FixedZone("PKT", 5*3600)
	late := time.Date(2026, 3, 1, 23, 30, 0, 0, karachi)
	assert.Equal(t, "2026-03-01", NewDate(late).String())
	assert.Equal(t, "2026-03-01", NewDate(late.UTC()).String())
}

func TestDateScanValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-01-02", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.NotNil(t, v)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	v, err = d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}
