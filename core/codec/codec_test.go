package codec

import (
	"encoding/json"
	"fmt"
	"testing"

	"training-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func caltechVocabulary() []string {
	labels := make([]string, 257)
	for i := range labels {
		labels[i] = fmt.Sprintf("class-%03d", i)
	}
	return labels
}

func TestEncodeIsPassthrough(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0}
	payload, contentType := Encode(image)
	assert.Equal(t, image, payload)
	assert.Equal(t, "application/x-image", contentType)
}

func TestDecodeResolvesArgmax(t *testing.T) {
	vocab := caltechVocabulary()
	probs := make([]float64, 257)
	probs[0] = 0.1
	probs[1] = 0.9
	raw, err := json.Marshal(probs)
	require.NoError(t, err)

	result, err := Decode(raw, vocab)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PredictedIndex)
	assert.Equal(t, "class-001", result.PredictedLabel)
	assert.Len(t, result.ClassProbabilities, 257)
}

func TestDecodeTiesResolveToLowestIndex(t *testing.T) {
	result, err := Decode([]byte(`[0.2, 0.4, 0.4]`), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.PredictedIndex)
	assert.Equal(t, "b", result.PredictedLabel)
}

func TestDecodeRejectsVocabularySkew(t *testing.T) {
	vocab := caltechVocabulary()
	_, err := Decode([]byte(`[0.5, 0.5]`), vocab)

	var derr *models.DecodeError
	require.ErrorAs(t, err, &derr)
}

func TestDecodeRejectsNonArrayResponse(t *testing.T) {
	_, err := Decode([]byte(`{"error": "boom"}`), []string{"a"})

	var derr *models.DecodeError
	require.ErrorAs(t, err, &derr)
}

func TestDecodeRejectsEmptyVocabulary(t *testing.T) {
	_, err := Decode([]byte(`[]`), nil)

	var derr *models.DecodeError
	require.ErrorAs(t, err, &derr)
}
