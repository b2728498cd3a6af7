package orchestrator

import (
	"context"

	"github.com/tanishka786/triage-orchestrator/core"
	"github.com/tanishka786/triage-orchestrator/stepgraph"
)

// sharedSteps is the step sequence every request shares, before detector
// steps are added dynamically and before HOSPITALS is conditionally
// appended.
var sharedSteps = []core.StepName{
	core.StepValidate,
	core.StepRoute,
	core.StepTriage,
	core.StepDiagnose,
	core.StepReport,
}

// seedConstruction implements Phase 1: allocate the StepGraph with the
// steps every request shares. Detector steps are added later, once ROUTE
// has produced a body part. HOSPITALS is added here for AUTO/ADVANCED iff
// geolocation consent was granted; GUIDED always seeds it so a missing
// consent can be recorded as an explicit SKIPPED step with a reason,
// rather than the step simply never existing.
func seedConstruction(g *stepgraph.Graph, request *core.ProcessingRequest) {
	_ = g.AddStep(core.StepValidate)
	_ = g.AddStep(core.StepRoute)
	_ = g.AddStep(core.StepTriage)
	_ = g.AddStep(core.StepDiagnose)
	_ = g.AddStep(core.StepReport)

	geolocationGranted := request.Consents != nil && request.Consents["geolocation"]
	if request.Mode == core.ModeGuided || geolocationGranted {
		_ = g.AddStep(core.StepHospitals)
	}
}

// executeControlFlow runs Phase 2/3 for any mode and returns the prompts a
// GUIDED run may have recorded (empty slices for AUTO/ADVANCED).
func (o *Orchestrator) executeControlFlow(ctx context.Context, request *core.ProcessingRequest, g *stepgraph.Graph) ([]core.GuidedPrompt, []core.ConsentPrompt) {
	var guidedPrompts []core.GuidedPrompt
	var consentPrompts []core.ConsentPrompt

	if stop := o.runStep(ctx, request, g, core.StepValidate); stop {
		return guidedPrompts, consentPrompts
	}
	if stop := o.runStep(ctx, request, g, core.StepRoute); stop {
		return guidedPrompts, consentPrompts
	}

	runBoth, prompt := o.decideDetectorFanout(request, g)
	if prompt != nil {
		guidedPrompts = append(guidedPrompts, *prompt)
	}

	var detectorFatal bool
	if runBoth {
		_ = g.AddStep(core.StepDetectHand)
		_ = g.AddStep(core.StepDetectLeg)
		detectorFatal = o.runConcurrently(ctx, request, g, []core.StepName{core.StepDetectHand, core.StepDetectLeg})
	} else {
		bodyPart, _ := g.DetectedBodyPart()
		step := core.StepDetectLeg
		if bodyPart == core.BodyPartHand {
			step = core.StepDetectHand
		}
		_ = g.AddStep(step)
		detectorFatal = o.runStep(ctx, request, g, step)
	}
	if detectorFatal {
		return guidedPrompts, consentPrompts
	}

	// TRIAGE, DIAGNOSE, REPORT never stop the pipeline on individual
	// failure.
	o.runStep(ctx, request, g, core.StepTriage)
	o.runStep(ctx, request, g, core.StepDiagnose)
	o.runStep(ctx, request, g, core.StepReport)

	if g.GetStep(core.StepHospitals) != nil {
		geolocationGranted := request.Consents != nil && request.Consents["geolocation"]
		if !geolocationGranted {
			g.Skip(core.StepHospitals, "Geolocation consent not provided")
			consentPrompts = append(consentPrompts, core.ConsentPrompt{
				Message:  "Hospital recommendations require geolocation consent.",
				StepName: core.StepHospitals,
				Consent:  "geolocation",
			})
			o.emitCompleted(request.RequestID, g, core.StepHospitals)
		} else {
			o.runStep(ctx, request, g, core.StepHospitals)
		}
	}

	return guidedPrompts, consentPrompts
}

// decideDetectorFanout implements the routing branch of Phase 2: which
// detector(s) to run, and whether GUIDED mode's low-confidence override
// applies.
func (o *Orchestrator) decideDetectorFanout(request *core.ProcessingRequest, g *stepgraph.Graph) (runBoth bool, prompt *core.GuidedPrompt) {
	if request.Mode == core.ModeGuided {
		var routeConfidence float64
		if routeStep := g.GetStep(core.StepRoute); routeStep != nil && routeStep.Confidence != nil {
			routeConfidence = *routeStep.Confidence
		}
		threshold := o.policies.DetectionThresholds(request.RequestID).RouterThreshold
		if routeConfidence < threshold {
			return true, &core.GuidedPrompt{
				Message:    "Routing confidence below threshold; running both hand and leg detectors.",
				PromptType: "low_confidence",
				StepName:   core.StepRoute,
				Options:    []string{"hand", "leg", "both"},
			}
		}
	}

	bodyPart, hasBodyPart := g.DetectedBodyPart()
	if !hasBodyPart || bodyPart == core.BodyPartUnknown {
		return true, nil
	}
	return false, nil
}
