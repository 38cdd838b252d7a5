package detect

import "context"

// ObservationTimeModule interrupts the pipeline once a token has been
// watched long enough that further monitoring is unlikely to change the
// verdict, finalizing whatever has been concluded so far (spec.md §4.D
// module 15).
type ObservationTimeModule struct{}

func (ObservationTimeModule) Key() Key { return KeyObservationTime }

func (ObservationTimeModule) Scan(_ context.Context, in ScanInput) (Result, bool, error) {
	age := in.Timestamp.Sub(in.Token.DeploymentTime)
	if age <= in.Config.ObservationTime {
		return Result{Detected: false}, false, nil
	}
	return Result{Detected: true, Metadata: map[string]any{"age": age}}, true, nil
}

func (ObservationTimeModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
