package codec

import (
	"encoding/json"
	"fmt"

	"training-orchestrator/core/models"
)

// PayloadContentType tags raw image payloads on the wire. The deployed
// model owns preprocessing, so pixel data passes through untouched.
const PayloadContentType = "application/x-image"

// Encode frames raw image bytes for the invoke call.
func Encode(image []byte) (payload []byte, contentType string) {
	return image, PayloadContentType
}

// Decode parses the endpoint's probability array and resolves the
// predicted label. The array length must match the vocabulary exactly; a
// mismatch signals a vocabulary/model version skew and is rejected. Argmax
// ties resolve to the lowest index.
func Decode(raw []byte, vocabulary []string) (*models.PredictionResult, error) {
	var probs []float64
	if err := json.Unmarshal(raw, &probs); err != nil {
		return nil, &models.DecodeError{Reason: "response is not a numeric array", Err: err}
	}
	if len(probs) != len(vocabulary) {
		return nil, &models.DecodeError{
			Reason: fmt.Sprintf("got %d scores for a vocabulary of %d labels", len(probs), len(vocabulary)),
		}
	}
	if len(probs) == 0 {
		return nil, &models.DecodeError{Reason: "empty response"}
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	return &models.PredictionResult{
		ClassProbabilities: probs,
		PredictedIndex:     best,
		PredictedLabel:     vocabulary[best],
	}, nil
}
