package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPassword(t *testing.T) {
	for in, want := range map[string]string{
		"s3cret-pass\n":         "s3cret-pass",
		"s3cret-pass\r\nrest\n": "s3cret-pass",
		"no-newline":            "no-newline",
		"":                      "",
	} {
		got, err := readPassword(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
