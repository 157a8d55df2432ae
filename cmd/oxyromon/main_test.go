package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnumValueRejectsUnlistedChoice(t *testing.T) {
	e := &enumValue{Enum: []string{"split", "non-merged"}, Default: "split"}

	assert.NoError(t, e.Set("non-merged"))
	assert.Equal(t, "non-merged", e.String())

	assert.Error(t, e.Set("bogus"))
}

func TestEnumValueDefaultsWhenUnset(t *testing.T) {
	e := &enumValue{Enum: []string{"a", "b"}, Default: "a"}
	assert.Equal(t, "a", e.String())
}

func TestAsUserErrorFindsWrappedUserError(t *testing.T) {
	var ue userError
	wrapped := fmt.Errorf("sort-roms: %w", userErrorf("bad input"))

	assert.True(t, asUserError(wrapped, &ue))
	assert.Equal(t, "bad input", ue.Error())

	assert.False(t, asUserError(context.Canceled, &ue))
}
