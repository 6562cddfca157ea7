package model

import "strings"

// FaceRecord is one detected-and-classified face as returned by a vision
// engine. Records are folded into an Aggregate immediately and never stored.
type FaceRecord struct {
	Gender     string  `json:"gender"`
	AgeGroup   string  `json:"age_group"`
	Confidence float64 `json:"confidence"`
}

type GenderCounts struct {
	Male   int `json:"male"`
	Female int `json:"female"`
}

type AgeGroupCounts struct {
	Tens      int `json:"10s"`
	Twenties  int `json:"20s"`
	Thirties  int `json:"30s"`
	FortyPlus int `json:"40_plus"`
}

// Aggregate holds the summary statistics for a completed job. The JSON shape
// is part of the API contract and must stay stable.
type Aggregate struct {
	TotalFaces int            `json:"total_faces"`
	Gender     GenderCounts   `json:"gender"`
	AgeGroup   AgeGroupCounts `json:"age_group"`
}

func NewAggregate() *Aggregate {
	return &Aggregate{}
}

// Fold accumulates one image's face records into the aggregate. Every face
// counts toward TotalFaces; unrecognized gender or age labels are skipped
// without affecting the other buckets, so bucket sums never exceed TotalFaces.
// Folding the same batches in any order yields the same result.
func (a *Aggregate) Fold(faces []FaceRecord) {
	a.TotalFaces += len(faces)
	for _, f := range faces {
		switch strings.ToLower(f.Gender) {
		case "male":
			a.Gender.Male++
		case "female":
			a.Gender.Female++
		}
		switch f.AgeGroup {
		case "10s":
			a.AgeGroup.Tens++
		case "20s":
			a.AgeGroup.Twenties++
		case "30s":
			a.AgeGroup.Thirties++
		case "40_plus":
			a.AgeGroup.FortyPlus++
		}
	}
}
