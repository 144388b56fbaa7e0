// Package metrics records request and pipeline counters. The Prometheus
// implementation is used in serve; NoopRecorder everywhere else.
package metrics

import "time"

type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
)

func ResultOf(err error) Result {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}

type Recorder interface {
	ObserveRequest(method, route string, status int, d time.Duration)
	IncPresetActivation(presetID string, result Result)
	IncRollback(result Result)
	IncHomeSeed(mode string, result Result)
	ObserveLandingAssembly(templateID string, d time.Duration)
	AddContentWarnings(code string, n int)
}

type NoopRecorder struct{}

func (NoopRecorder) ObserveRequest(string, string, int, time.Duration)  {}
func (NoopRecorder) IncPresetActivation(string, Result)                 {}
func (NoopRecorder) IncRollback(Result)                                 {}
func (NoopRecorder) IncHomeSeed(string, Result)                         {}
func (NoopRecorder) ObserveLandingAssembly(string, time.Duration)       {}
func (NoopRecorder) AddContentWarnings(string, int)                     {}
