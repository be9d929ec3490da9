// Package status reports the readiness of the answering pipeline.
package status

// Pipeline exposes the readiness of the answering components.
type Pipeline interface {
	Ready() bool
	ModelLoaded() bool
	VectorStoreLoaded() bool
}

// Report is a point-in-time snapshot of pipeline readiness. Each component
// is reported explicitly so operators can see which part is missing.
type Report struct {
	RAGInitialized    bool
	ModelLoaded       bool
	VectorStoreLoaded bool
}

// Service aggregates readiness checks.
type Service struct {
	pipeline Pipeline
}

// New creates a Service.
func New(pipeline Pipeline) *Service {
	return &Service{pipeline: pipeline}
}

// Check snapshots the pipeline state.
func (s *Service) Check() Report {
	return Report{
		RAGInitialized:    s.pipeline.Ready(),
		ModelLoaded:       s.pipeline.ModelLoaded(),
		VectorStoreLoaded: s.pipeline.VectorStoreLoaded(),
	}
}
