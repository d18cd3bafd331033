package production

import (
	"context"
	"errors"
	"sync"

	"cinescript/internal/ai"
	"cinescript/internal/models"
)

const updateBuffer = 16

// Session is one project's full mutable state. Every read and write goes
// through the mutex; generation operations run in their own goroutine and
// re-enter through the complete/report methods, which discard stale results.
type Session struct {
	ID string

	mu           sync.Mutex
	phase        Phase
	config       models.GenerationConfig
	apiKey       string
	scriptFile   string
	scriptName   string
	scriptLoaded bool
	scene        *models.MovieScene
	videoURL     string
	progress     string
	flowErr      *FlowError

	// generation names the one operation allowed to write results back.
	generation uint64
	cancel     context.CancelFunc

	updates chan SessionUpdate
	closed  bool
}

func newSession(id string) *Session {
	return &Session{
		ID:      id,
		phase:   PhaseKeySelection,
		config:  models.DefaultGenerationConfig(),
		updates: make(chan SessionUpdate, updateBuffer),
	}
}

// Updates is the project's event stream. It closes when the project does.
func (s *Session) Updates() <-chan SessionUpdate { return s.updates }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot copies the state the UI renders. The scene is deep-copied so a
// later subtitle edit cannot race a caller still holding the snapshot.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flowErr *FlowError
	if s.flowErr != nil {
		e := *s.flowErr
		flowErr = &e
	}

	return &Snapshot{
		ID:           s.ID,
		Phase:        s.phase,
		Config:       s.config.Clone(),
		ScriptLoaded: s.scriptLoaded,
		ScriptName:   s.scriptName,
		Scene:        s.scene.Clone(),
		VideoURL:     s.videoURL,
		Progress:     s.progress,
		Error:        flowErr,
	}
}

// publish delivers an update without blocking the caller: when the buffer is
// full the oldest entry is dropped, so a slow consumer sees the newest state
// instead of stalling mutations. Callers hold the lock.
func (s *Session) publish(update SessionUpdate) {
	if s.closed {
		return
	}
	for {
		select {
		case s.updates <- update:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// advance applies one transition and announces the new phase. Callers hold
// the lock; an illegal trigger leaves the phase untouched.
func (s *Session) advance(t Trigger) bool {
	next, ok := s.phase.Next(t)
	if !ok {
		return false
	}
	s.phase = next
	s.publish(SessionUpdate{Type: UpdatePhase, Data: next})
	return true
}

func (s *Session) setError(kind, message string) {
	s.flowErr = &FlowError{Kind: kind, Message: message}
	s.publish(SessionUpdate{Type: UpdateError, Data: s.flowErr})
}

func (s *Session) clearErrorLocked() {
	if s.flowErr == nil {
		return
	}
	s.flowErr = nil
	s.publish(SessionUpdate{Type: UpdateError, Data: nil})
}

// beginOperationLocked claims the session for a new background operation.
// The returned generation must still match at completion time for results to
// land; anything older is a straggler and gets dropped.
func (s *Session) beginOperationLocked() (uint64, context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	return s.generation, ctx
}

// ApplyConfig overwrites the fields the patch carries.
func (s *Session) ApplyConfig(patch models.ConfigPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.Apply(patch)
}

// ToggleArchetype flips membership. The remaining selection keeps its
// insertion order; re-adding appends at the end.
func (s *Session) ToggleArchetype(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.config.Archetypes)+1)
	found := false
	for _, v := range s.config.Archetypes {
		if v == value {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, value)
	}
	s.config.Archetypes = out
}

// UpdateSubtitleText rewrites one cue's text. Out-of-range indexes are
// ignored.
func (s *Session) UpdateSubtitleText(index int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil || index < 0 || index >= len(s.scene.Subtitles) {
		return
	}
	s.scene.Subtitles[index].Text = text
	s.publish(SessionUpdate{Type: UpdateScene, Data: s.scene.Clone()})
}

// UpdateSubtitleTime parses raw and writes it into the named field. Anything
// that does not parse to a usable number of seconds becomes 0; the stored
// value is never NaN. Out-of-range indexes and unknown fields are ignored.
func (s *Session) UpdateSubtitleTime(index int, field, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil || index < 0 || index >= len(s.scene.Subtitles) {
		return
	}

	seconds := models.ParseSeconds(raw)
	switch field {
	case "startTime":
		s.scene.Subtitles[index].StartTime = seconds
	case "endTime":
		s.scene.Subtitles[index].EndTime = seconds
	default:
		return
	}
	s.publish(SessionUpdate{Type: UpdateScene, Data: s.scene.Clone()})
}

// reportProgress publishes a render status line. Messages from a superseded
// run are dropped, so nothing arrives after the operation resolved.
func (s *Session) reportProgress(gen uint64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return
	}
	s.progress = message
	s.publish(SessionUpdate{Type: UpdateProgress, Data: message})
}

// completeAnalysis lands the combined analyze+storyboard outcome, unless the
// project has moved on since the operation started.
func (s *Session) completeAnalysis(gen uint64, scene *models.MovieScene, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return
	}
	s.cancel = nil

	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, ai.ErrCredentialExpired):
			s.apiKey = ""
			s.setError(ErrorKindCredentialExpired, msgSessionExpired)
			s.advance(TriggerCredentialExpired)
		case errors.Is(err, ai.ErrStoryboardFailed):
			s.setError(ErrorKindStoryboard, err.Error())
			s.advance(TriggerAnalysisFailed)
		default:
			s.setError(ErrorKindAnalysis, err.Error())
			s.advance(TriggerAnalysisFailed)
		}
		return
	}

	s.scene = scene
	s.publish(SessionUpdate{Type: UpdateScene, Data: scene.Clone()})
	s.advance(TriggerAnalysisSucceeded)
}

// completeVideo lands the render outcome. A failure keeps the scene and
// storyboard intact and returns to STORYBOARD; an expired credential takes
// the same edge but tells the user to re-key.
func (s *Session) completeVideo(gen uint64, videoURL string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return
	}
	s.cancel = nil
	s.progress = ""

	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, ai.ErrCredentialExpired):
			s.setError(ErrorKindCredentialExpired, msgSessionExpired)
		default:
			s.setError(ErrorKindVideo, err.Error())
		}
		s.advance(TriggerVideoFailed)
		return
	}

	s.videoURL = videoURL
	s.publish(SessionUpdate{Type: UpdateVideo, Data: videoURL})
	s.advance(TriggerVideoSucceeded)
}

// resetLocked clears everything a new screenplay run must not see. The
// credential and configuration draft survive. Returns the spool file the
// caller should delete.
func (s *Session) resetLocked() string {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	spool := s.scriptFile
	s.scriptFile = ""
	s.scriptName = ""
	s.scriptLoaded = false
	s.scene = nil
	s.videoURL = ""
	s.progress = ""
	s.flowErr = nil
	return spool
}

// close ends the event stream and cancels any in-flight work. Returns the
// spool file the caller should delete.
func (s *Session) close() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ""
	}

	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.closed = true
	close(s.updates)

	spool := s.scriptFile
	s.scriptFile = ""
	return spool
}
