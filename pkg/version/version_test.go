package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/xdsref/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	line := version.String()

	assert.Contains(t, line, "xdsref ")
	assert.Contains(t, line, "commit "+version.Commit)
	assert.Contains(t, line, "built "+version.Date)
}
