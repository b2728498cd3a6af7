// Package triage implements the Triage Kernel (C5): a pure, deterministic
// confidence-weighted severity scoring function combining detector output
// and symptom keywords.
package triage

import (
	"fmt"

	"github.com/tanishka786/triage-orchestrator/core"
)

// Method values, the closed set the kernel reports.
const (
	MethodDynamicScoring = "dynamic_scoring"
	MethodRuleBased      = "rule_based"
	MethodHybrid         = "hybrid"
	MethodErrorFallback  = "error_fallback"
)

// Thresholds is the minimal read view the kernel needs from policy — kept
// narrow so the kernel package never imports policy directly, matching the
// leaves-first layering of core.PolicyView.
type Thresholds struct {
	RedCutoff            float64
	AmberCutoff          float64
	HighConfidenceCutoff float64
}

// ThresholdsFromPolicy adapts any core.PolicyView into a Thresholds value.
func ThresholdsFromPolicy(p core.PolicyView) Thresholds {
	red, amber, high := p.TriageThresholds()
	return Thresholds{RedCutoff: red, AmberCutoff: amber, HighConfidenceCutoff: high}
}

// Assess runs the dynamic-scoring algorithm. It never
// returns an error and never panics outward: any internal failure is
// recovered and converted into the documented AMBER error_fallback result.
func Assess(detections []core.Detection, symptoms string, thresholds Thresholds) (result core.TriageResult) {
	defer func() {
		if r := recover(); r != nil {
			result = core.TriageResult{
				Level:      core.TriageAmber,
				Rationale:  []string{"Triage assessment unavailable, recommend medical evaluation"},
				Confidence: 0.0,
				Score:      0.5,
				Method:     MethodErrorFallback,
			}
		}
	}()

	return assess(detections, symptoms, thresholds)
}

func assess(detections []core.Detection, symptoms string, thresholds Thresholds) core.TriageResult {
	var score float64
	var rationale []string
	var confidence float64

	if len(detections) == 0 {
		if hasSevereSymptom(symptoms) {
			score += 0.3
		}
		rationale = []string{"No fractures detected"}
		confidence = 0.8
	} else {
		bestIdx := 0
		bestContribution := -1.0
		bestScore := -1.0

		for i, d := range detections {
			sev := severity(d.Label)
			contribution := 0.7*d.Score + 0.3*sev

			better := contribution > bestContribution
			tie := contribution == bestContribution
			if !better && tie && d.Score > bestScore {
				better = true
			}
			if better {
				bestContribution = contribution
				bestScore = d.Score
				bestIdx = i
			}
		}

		dominant := detections[bestIdx]
		score = bestContribution
		rationale = []string{fmt.Sprintf("Dominant finding: %s (score %.2f)", dominant.Label, dominant.Score)}

		maxRaw := detections[0].Score
		for _, d := range detections {
			if d.Score > maxRaw {
				maxRaw = d.Score
			}
		}
		confidence = maxRaw
	}

	if hasSevereSymptom(symptoms) {
		score += 0.10
		if score > 1.0 {
			score = 1.0
		}
		rationale = append(rationale, "Concerning symptoms reported")
	}

	level := core.TriageGreen
	switch {
	case score >= thresholds.RedCutoff:
		level = core.TriageRed
	case score >= thresholds.AmberCutoff:
		level = core.TriageAmber
	}

	return core.TriageResult{
		Level:      level,
		Rationale:  rationale,
		Confidence: confidence,
		Score:      score,
		Method:     MethodDynamicScoring,
	}
}
