package core

// PluginResult is the frozen outcome of running one plugin: the collection
// and analysis phase results plus the collected data record. The executor
// owns it after run; collators must treat it as read-only.
type PluginResult struct {
	Source           string         `json:"source" yaml:"source"`
	State            LifecycleState `json:"state" yaml:"state"`
	Data             any            `json:"data,omitempty" yaml:"data,omitempty"`
	CollectionResult *TaskResult    `json:"collection_result,omitempty" yaml:"collection_result,omitempty"`
	AnalysisResult   *TaskResult    `json:"analysis_result,omitempty" yaml:"analysis_result,omitempty"`
	ArtifactPaths    []string       `json:"artifact_paths,omitempty" yaml:"artifact_paths,omitempty"`
}

// Status returns the combined plugin status: the more severe of the two
// phase statuses. A plugin with a clean collection but failing analysis (or
// the reverse) reports the failure.
func (r *PluginResult) Status() ExecutionStatus {
	var status ExecutionStatus
	if r.CollectionResult != nil {
		status = MaxStatus(status, r.CollectionResult.Status)
	}
	if r.AnalysisResult != nil {
		status = MaxStatus(status, r.AnalysisResult.Status)
	}
	return status
}

// Message summarizes the run, preferring the analysis message when analysis
// ran.
func (r *PluginResult) Message() string {
	if r.AnalysisResult != nil && r.AnalysisResult.Message != "" {
		return r.AnalysisResult.Message
	}
	if r.CollectionResult != nil {
		return r.CollectionResult.Message
	}
	return ""
}

// Events returns the merged event view in phase order: collection events
// first, then analysis events, each preserving append order.
func (r *PluginResult) Events() []Event {
	var events []Event
	if r.CollectionResult != nil {
		events = append(events, r.CollectionResult.Events...)
	}
	if r.AnalysisResult != nil {
		events = append(events, r.AnalysisResult.Events...)
	}
	return events
}

// WorstStatus returns the most severe status across a result set. Used by
// the CLI to derive its exit code.
func WorstStatus(results []PluginResult) ExecutionStatus {
	var worst ExecutionStatus
	for i := range results {
		worst = MaxStatus(worst, results[i].Status())
	}
	return worst
}
