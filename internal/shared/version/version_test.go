package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "v1.2.3", Normalize("1.2.3"))
	assert.Equal(t, "v1.2.3", Normalize(" v1.2.3 "))
	assert.Equal(t, "", Normalize(""))
}

func TestCurrentAndIsRelease(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "dev"
	assert.Equal(t, "dev", Current())
	assert.False(t, IsRelease())

	Version = "1.4"
	assert.Equal(t, "v1.4.0", Current())
	assert.True(t, IsRelease())

	Version = "v2.0.0-rc.1"
	assert.Equal(t, "v2.0.0-rc.1", Current())
	assert.False(t, IsRelease())
}
