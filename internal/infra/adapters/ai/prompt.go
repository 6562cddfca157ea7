package ai

import (
	"encoding/json"
	"fmt"

	"face-insight-backend/internal/domain/model"
)

// systemPrompt pins the model to the aggregate JSON so answers never drift
// from the measured statistics.
const systemPrompt = `You are an assistant that answers questions about face-analysis results.
You are given a JSON document produced by a face detection and classification pipeline.

Rules (always follow):
1. Answer ONLY from the provided JSON data.
2. Never guess or invent information that is not in the JSON.
3. If the question cannot be answered from the JSON, say so honestly.
4. Use exact numbers and ratios.
5. Keep a friendly, professional tone.

JSON structure:
- total_faces: total number of detected faces
- gender: gender distribution (male, female)
- age_group: age distribution (10s, 20s, 30s, 40_plus)`

func buildUserPrompt(agg *model.Aggregate, question string) (string, error) {
	blob, err := json.MarshalIndent(agg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode aggregate: %w", err)
	}
	return fmt.Sprintf("## Analysis result\n```json\n%s\n```\n\n## Question\n%s\n", blob, question), nil
}
