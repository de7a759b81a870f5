package algorithm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageReference(t *testing.T) {
	image, err := ImageReference("us-west-2")
	require.NoError(t, err)
	assert.Equal(t, "433757028032.dkr.ecr.us-west-2.amazonaws.com/image-classification:1", image)
}

func TestImageReferenceUnknownRegion(t *testing.T) {
	_, err := ImageReference("mars-north-1")
	require.Error(t, err)
}
