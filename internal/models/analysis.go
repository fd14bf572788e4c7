package models

// ClassificationRecord is the normalized shape of a Plant.id health assessment.
// It is never persisted raw; the orchestration layer stores it as JSONB.
type ClassificationRecord struct {
	IsHealthy    bool         `json:"isHealthy"`
	Diseases     []Disease    `json:"diseases"`
	ImageQuality ImageQuality `json:"imageQuality"`
}

type Disease struct {
	Name        string         `json:"name"`
	Probability float64        `json:"probability"`
	Details     DiseaseDetails `json:"details"`
}

type DiseaseDetails struct {
	Cause          *string `json:"cause"`
	CommonNames    any     `json:"commonNames"`
	Description    *string `json:"description"`
	Treatment      any     `json:"treatment"`
	Classification any     `json:"classification"`
	URL            *string `json:"url"`
}

type ImageQuality struct {
	IsAcceptable bool    `json:"isAcceptable"`
	QualityScore float64 `json:"qualityScore"`
}

// TopDisease reduces the disease list by maximum probability. The vendor does
// not guarantee ordering, so the first element must not be trusted. An empty
// list yields the Healthy sentinel.
func (r *ClassificationRecord) TopDisease() Disease {
	if len(r.Diseases) == 0 {
		return Disease{Name: "Healthy", Probability: 1}
	}
	top := r.Diseases[0]
	for _, d := range r.Diseases[1:] {
		if d.Probability > top.Probability {
			top = d
		}
	}
	return top
}

// AdvisoryResult is the post-processed output of the advisory synthesis adapter.
type AdvisoryResult struct {
	Response         string           `json:"response"`
	ConfidenceLevel  float64          `json:"confidenceLevel"`
	SuggestedActions SuggestedActions `json:"suggestedActions"`
}

type SuggestedActions struct {
	Immediate  []string `json:"immediate,omitempty"`
	Preventive []string `json:"preventive,omitempty"`
	Organic    []string `json:"organic,omitempty"`
	Chemical   []string `json:"chemical,omitempty"`
}

// UnavailableAdvisory is the fixed fallback substituted when the AI backend fails.
func UnavailableAdvisory() *AdvisoryResult {
	return &AdvisoryResult{
		Response:        "AI recommendations unavailable",
		ConfidenceLevel: 0,
	}
}

// AdvisoryContext carries the optional prompt context fields.
type AdvisoryContext struct {
	Location string
	CropType string
	Season   string
}
