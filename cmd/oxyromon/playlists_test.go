package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilenameReplacesReservedCharacters(t *testing.T) {
	assert.Equal(t, "Final Fantasy VII_ Remake", sanitizeFilename("Final Fantasy VII: Remake"))
	assert.Equal(t, "a_b_c", sanitizeFilename("a/b\\c"))
	assert.Equal(t, "plain", sanitizeFilename("plain"))
}
