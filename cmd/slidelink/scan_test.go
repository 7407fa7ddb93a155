package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/slidelink/internal/scan"
)

func TestDisplayResults(t *testing.T) {
	out := &bytes.Buffer{}
	err := displayResults(out, []scan.Result{
		{
			Address:  "11:22:33:44:55:66",
			Name:     "Other",
			RSSI:     -80,
			Services: []string{"1800"},
			LastSeen: time.Now(),
		},
		{
			Address:  "aa:bb:cc:dd:ee:ff",
			Name:     "Remote",
			RSSI:     -60,
			Services: []string{"6e400001-b5a3-f393-e0a9-e50e24dcca9e"},
			LastSeen: time.Now(),
		},
	})
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "NAME")
	assert.Contains(t, s, "Remote")
	assert.Contains(t, s, "aa:bb:cc:dd:ee:ff")
	assert.Contains(t, s, "-60 dBm")

	// Long service UUIDs are shown as prefixes.
	assert.Contains(t, s, "6e400001")
	assert.NotContains(t, s, "6e400001-b5a3")

	// Sorted by name.
	assert.Less(t, bytes.Index(out.Bytes(), []byte("Other")), bytes.Index(out.Bytes(), []byte("Remote")))
}

func TestDisplayResultsEmpty(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, displayResults(out, nil))
	assert.Contains(t, out.String(), "No devices discovered")
}
