package production

// Phase is one state of a project's production lifecycle. Values are the
// wire form used in snapshots and events.
type Phase string

const (
	PhaseKeySelection Phase = "key_selection"
	PhaseUpload       Phase = "upload"
	PhaseConfigure    Phase = "configure"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseStoryboard   Phase = "storyboard"
	PhaseGenerating   Phase = "generating"
	PhaseResult       Phase = "result"
)

// Trigger names the user action or operation outcome that moves a project
// between phases.
type Trigger string

const (
	TriggerKeyAccepted       Trigger = "key_accepted"
	TriggerScriptAttached    Trigger = "script_attached"
	TriggerAnalysisStarted   Trigger = "analysis_started"
	TriggerAnalysisSucceeded Trigger = "analysis_succeeded"
	TriggerAnalysisFailed    Trigger = "analysis_failed"
	TriggerCredentialExpired Trigger = "credential_expired"
	TriggerVideoStarted      Trigger = "video_started"
	TriggerVideoSucceeded    Trigger = "video_succeeded"
	TriggerVideoFailed       Trigger = "video_failed"
	TriggerStoryboardEdit    Trigger = "storyboard_edit"
	TriggerReset             Trigger = "reset"
)

// transitions is the authoritative edge set. An absent entry means the
// trigger is illegal in that phase. Attaching a script while already in
// CONFIGURE replaces the previous screenplay; a reset is legal from every
// phase past KEY_SELECTION and keeps the credential.
var transitions = map[Phase]map[Trigger]Phase{
	PhaseKeySelection: {
		TriggerKeyAccepted: PhaseUpload,
	},
	PhaseUpload: {
		TriggerScriptAttached: PhaseConfigure,
		TriggerReset:          PhaseUpload,
	},
	PhaseConfigure: {
		TriggerScriptAttached:  PhaseConfigure,
		TriggerAnalysisStarted: PhaseAnalyzing,
		TriggerReset:           PhaseUpload,
	},
	PhaseAnalyzing: {
		TriggerAnalysisSucceeded: PhaseStoryboard,
		TriggerAnalysisFailed:    PhaseConfigure,
		TriggerCredentialExpired: PhaseKeySelection,
		TriggerReset:             PhaseUpload,
	},
	PhaseStoryboard: {
		TriggerVideoStarted: PhaseGenerating,
		TriggerReset:        PhaseUpload,
	},
	PhaseGenerating: {
		TriggerVideoSucceeded: PhaseResult,
		TriggerVideoFailed:    PhaseStoryboard,
		TriggerReset:          PhaseUpload,
	},
	PhaseResult: {
		TriggerVideoStarted:   PhaseGenerating,
		TriggerStoryboardEdit: PhaseStoryboard,
		TriggerReset:          PhaseUpload,
	},
}

// Next returns the phase the trigger leads to, or false when the trigger is
// not legal in p.
func (p Phase) Next(t Trigger) (Phase, bool) {
	next, ok := transitions[p][t]
	return next, ok
}

// Allows reports whether the trigger is legal in p.
func (p Phase) Allows(t Trigger) bool {
	_, ok := transitions[p][t]
	return ok
}
