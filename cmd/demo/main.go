// Command demo wires the full orchestration engine together with
// deterministic demo stage handlers and runs a handful of sample requests
// end to end, printing each ProcessingResponse as JSON. HTTP transport is
// out of scope for the engine, so this is the repository's runnable
// entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tanishka786/triage-orchestrator/artifact"
	"github.com/tanishka786/triage-orchestrator/core"
	"github.com/tanishka786/triage-orchestrator/orchestrator"
	"github.com/tanishka786/triage-orchestrator/policy"
	"github.com/tanishka786/triage-orchestrator/stage"
	"github.com/tanishka786/triage-orchestrator/telemetry"
	"github.com/tanishka786/triage-orchestrator/triage"
)

func main() {
	ctx := context.Background()

	logger := telemetry.NewStructuredLogger("triage-orchestrator-demo")

	provider, err := telemetry.NewProvider(ctx, "triage-orchestrator-demo")
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry provider: %v\n", err)
		os.Exit(1)
	}
	defer provider.Shutdown(ctx)

	var sinks []telemetry.Sink
	if dsn := os.Getenv("TRIAGE_AUDIT_DSN"); dsn != "" {
		sink, err := telemetry.NewPostgresAuditSink(ctx, dsn, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "audit sink disabled: %v\n", err)
		} else {
			defer sink.Close()
			sinks = append(sinks, sink)
		}
	} else {
		logger.Info("TRIAGE_AUDIT_DSN not set, running without a Postgres audit sink", nil)
	}

	hooks := telemetry.NewHooks(256, logger, nil, sinks...)
	defer hooks.Close()

	store := artifact.NewMemoryStore(nil, logger)
	policies := policy.NewRegistry(nil, logger)

	orch := orchestrator.New(policies, buildStages(store), store, hooks, logger)

	if addr := os.Getenv("TRIAGE_SNAPSHOT_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		orch = orch.WithSnapshotStore(orchestrator.NewRedisSnapshotStore(client, 24*time.Hour, logger))
	} else {
		logger.Info("TRIAGE_SNAPSHOT_REDIS_ADDR not set, running without durable snapshot persistence", nil)
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	orch.StartCleanupSweep(sweepCtx, time.Hour, 24*time.Hour)

	for _, scenario := range scenarios() {
		resp, err := orch.Process(ctx, scenario)
		if err != nil {
			fmt.Fprintf(os.Stderr, "request %s failed: %v\n", scenario.RequestID, err)
			continue
		}
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
	}
}

func buildStages(store core.ArtifactStore) *stage.Registry {
	reg := stage.NewRegistry()
	_ = reg.Register(core.StepValidate, validateStage{})
	_ = reg.Register(core.StepRoute, routeStage{bodyPart: core.BodyPartHand, confidence: 0.92})
	_ = reg.Register(core.StepDetectHand, detectStage{detections: []core.Detection{
		{Label: "displaced_fracture", X: 10, Y: 10, W: 50, H: 50, Score: 0.88},
	}})
	_ = reg.Register(core.StepDetectLeg, detectStage{})
	_ = reg.Register(core.StepTriage, triage.NewStage())
	_ = reg.Register(core.StepDiagnose, diagnoseStage{})
	_ = reg.Register(core.StepReport, reportStage{store: store})
	_ = reg.Register(core.StepHospitals, hospitalsStage{})
	return reg
}

func scenarios() []*core.ProcessingRequest {
	return []*core.ProcessingRequest{
		{
			RequestID: newRequestID(),
			ImageRef:  "demo://hand-001.png",
			Mode:      core.ModeAuto,
			Symptoms:  "severe pain",
		},
		{
			RequestID: newRequestID(),
			ImageRef:  "demo://hand-002.png",
			Mode:      core.ModeGuided,
			Consents:  map[string]bool{"geolocation": false},
		},
		{
			RequestID: newRequestID(),
			ImageRef:  "demo://hand-003.png",
			Mode:      core.ModeAdvanced,
			Consents:  map[string]bool{"geolocation": true},
			Overrides: map[string]interface{}{
				"router_threshold": 0.95,
				"timeout_overrides": map[string]interface{}{
					"detect": 1,
				},
			},
		},
	}
}
