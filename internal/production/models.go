package production

import (
	"errors"

	"cinescript/internal/models"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrIllegalPhase    = errors.New("action not allowed in the current phase")
	ErrInvalidInput    = errors.New("invalid input")
)

// SessionUpdate is one event pushed to the project's stream.
type SessionUpdate struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	UpdatePhase    = "phase"
	UpdateProgress = "progress"
	UpdateScene    = "scene"
	UpdateVideo    = "video"
	UpdateError    = "error"
)

// FlowError is the one user-visible error a project carries at a time. A new
// attempt clears the previous one.
type FlowError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	ErrorKindInput             = "input"
	ErrorKindAnalysis          = "analysis"
	ErrorKindStoryboard        = "storyboard"
	ErrorKindCredentialExpired = "credential_expired"
	ErrorKindVideo             = "video"
	ErrorKindDialog            = "dialog"
)

const (
	msgSessionExpired = "Your API session has expired. Please select a key to continue."
	msgNotPDF         = "Please choose a PDF screenplay."
	msgNoArchetypes   = "Select at least one character archetype before analysis."
	msgKeyRejected    = "Could not verify the API key."
	msgNoKey          = "No API key is available. Enter one to continue."
)

// Snapshot is the read model served to the UI.
type Snapshot struct {
	ID           string                  `json:"id"`
	Phase        Phase                   `json:"phase"`
	Config       models.GenerationConfig `json:"config"`
	ScriptLoaded bool                    `json:"scriptLoaded"`
	ScriptName   string                  `json:"scriptName,omitempty"`
	Scene        *models.MovieScene      `json:"scene"`
	VideoURL     string                  `json:"videoUrl,omitempty"`
	Progress     string                  `json:"progress,omitempty"`
	Error        *FlowError              `json:"error"`
}
