package adb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuoteSafeUnchanged(t *testing.T) {
	assert.Equal(t, "abc123_.+,:@%/=-", shellQuote("abc123_.+,:@%/=-"))
}

func TestShellQuoteEmpty(t *testing.T) {
	assert.Equal(t, "''", shellQuote(""))
}

func TestShellQuoteSpace(t *testing.T) {
	assert.Equal(t, "'hello world'", shellQuote("hello world"))
}

func TestShellQuoteEmbeddedSingleQuote(t *testing.T) {
	assert.Equal(t, `'it'"'"'s'`, shellQuote("it's"))
}

func TestShellQuoteShellMetacharacters(t *testing.T) {
	assert.Equal(t, "'$(rm -rf /)'", shellQuote("$(rm -rf /)"))
}
