package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", MaskToken(""))
	assert.Equal(t, "****", MaskToken("short"))
	assert.Equal(t, "****", MaskToken("12345678"))
	assert.Equal(t, "sk-l**********-end", MaskToken("sk-long-secret-end"))
}
