package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2024-10-10T10:10:10Z")
	assert.True(t, ok)
	assert.Equal(t, "2024-10-10T10:10:10Z", got.UTC().Format(time.RFC3339))

	nano, ok := ParseTime("2024-10-10T10:10:10.123456789Z")
	assert.True(t, ok)
	assert.Equal(t, 123456789, nano.Nanosecond())

	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	unix, ok := ParseTime(strconv.FormatInt(ts, 10))
	assert.True(t, ok)
	assert.Equal(t, ts, unix.Unix())

	_, ok = ParseTime("yesterday")
	assert.False(t, ok)
}
