package production

import (
	"context"
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cinescript/internal/ai"
	"cinescript/internal/models"
	"cinescript/internal/storage"
)

// GenerationClient is the slice of the backend the production flow consumes.
type GenerationClient interface {
	Probe(ctx context.Context) error
	AnalyzeScreenplay(ctx context.Context, document []byte, cfg models.GenerationConfig) (*models.MovieScene, error)
	GenerateStoryboard(ctx context.Context, visualPrompt string) (string, error)
	GenerateVideo(ctx context.Context, prompt string, onProgress func(string)) (string, error)
}

// ClientFactory builds a generation client bound to one credential.
type ClientFactory func(apiKey string) GenerationClient

// Service owns every live project and drives their phase transitions.
type Service struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	newClient  ClientFactory
	store      storage.Storage
	ambientKey string
}

func NewService(factory ClientFactory, store storage.Storage, ambientKey string) *Service {
	return &Service{
		sessions:   make(map[string]*Session),
		newClient:  factory,
		store:      store,
		ambientKey: ambientKey,
	}
}

// CreateProject registers a new project. With a usable ambient credential the
// project opens directly in UPLOAD; otherwise it waits in KEY_SELECTION. A
// failing probe means "no credential", not an error.
func (s *Service) CreateProject(ctx context.Context) *Snapshot {
	sess := newSession(uuid.New().String())

	if s.ambientKey != "" {
		if err := s.newClient(s.ambientKey).Probe(ctx); err == nil {
			sess.mu.Lock()
			sess.apiKey = s.ambientKey
			sess.advance(TriggerKeyAccepted)
			sess.mu.Unlock()
		} else {
			log.Warn().Err(err).Str("project", sess.ID).Msg("ambient credential probe failed")
		}
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Info().Str("project", sess.ID).Str("phase", string(sess.Phase())).Msg("project created")
	return sess.Snapshot()
}

func (s *Service) session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrProjectNotFound
	}
	return sess, nil
}

// Project returns the live session, for snapshotting and event streaming.
func (s *Service) Project(id string) (*Session, error) {
	return s.session(id)
}

func (s *Service) GetSnapshot(id string) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// CloseProject cancels any in-flight work, drops the spooled screenplay,
// ends the event stream, and forgets the session.
func (s *Service) CloseProject(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return ErrProjectNotFound
	}

	if spool := sess.close(); spool != "" {
		if err := s.store.DeleteFile(spool); err != nil {
			log.Warn().Err(err).Str("project", id).Msg("failed to delete spooled screenplay")
		}
	}

	log.Info().Str("project", id).Msg("project closed")
	return nil
}

// SubmitKey verifies a credential and unlocks the upload phase. An empty key
// means "use the server's ambient credential". A key that does not verify
// surfaces a dialog error on the session and leaves the phase alone.
func (s *Service) SubmitKey(ctx context.Context, id, apiKey string) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if sess.phase != PhaseKeySelection {
		sess.mu.Unlock()
		return nil, ErrIllegalPhase
	}
	sess.mu.Unlock()

	key := apiKey
	if key == "" {
		key = s.ambientKey
	}
	if key == "" {
		sess.mu.Lock()
		sess.setError(ErrorKindDialog, msgNoKey)
		sess.mu.Unlock()
		return sess.Snapshot(), nil
	}

	if err := s.newClient(key).Probe(ctx); err != nil {
		log.Warn().Err(err).Str("project", id).Msg("credential probe failed")
		sess.mu.Lock()
		sess.setError(ErrorKindDialog, msgKeyRejected)
		sess.mu.Unlock()
		return sess.Snapshot(), nil
	}

	sess.mu.Lock()
	sess.apiKey = key
	sess.clearErrorLocked()
	sess.advance(TriggerKeyAccepted)
	sess.mu.Unlock()

	log.Info().Str("project", id).Msg("credential accepted")
	return sess.Snapshot(), nil
}

// AttachScreenplay spools an uploaded screenplay and moves the project to
// CONFIGURE. Only exact application/pdf uploads pass; anything else sets an
// input error and leaves phase and payload untouched. Re-uploading replaces
// the previous spool file.
func (s *Service) AttachScreenplay(id string, file multipart.File, info storage.FileInfo) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if !sess.phase.Allows(TriggerScriptAttached) {
		sess.mu.Unlock()
		return nil, ErrIllegalPhase
	}
	sess.mu.Unlock()

	if info.ContentType != "application/pdf" {
		sess.mu.Lock()
		sess.setError(ErrorKindInput, msgNotPDF)
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, msgNotPDF)
	}

	spool, err := s.store.SaveFile(file, info)
	if err != nil {
		return nil, fmt.Errorf("failed to spool screenplay: %w", err)
	}

	sess.mu.Lock()
	if !sess.phase.Allows(TriggerScriptAttached) {
		sess.mu.Unlock()
		_ = s.store.DeleteFile(spool)
		return nil, ErrIllegalPhase
	}
	previous := sess.scriptFile
	sess.scriptFile = spool
	sess.scriptName = info.Filename
	sess.scriptLoaded = true
	sess.clearErrorLocked()
	sess.advance(TriggerScriptAttached)
	sess.mu.Unlock()

	if previous != "" {
		if err := s.store.DeleteFile(previous); err != nil {
			log.Warn().Err(err).Str("project", id).Msg("failed to delete replaced screenplay")
		}
	}

	log.Info().Str("project", id).Str("screenplay", info.Filename).Msg("screenplay attached")
	return sess.Snapshot(), nil
}

// ApplyConfig patches the configuration draft. Unknown catalog values are
// rejected before anything is written.
func (s *Service) ApplyConfig(id string, patch models.ConfigPatch) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	if patch.Genre != nil && !models.ValidGenre(*patch.Genre) {
		return nil, fmt.Errorf("%w: unknown genre %q", ErrInvalidInput, *patch.Genre)
	}
	if patch.Mood != nil && !models.ValidMood(*patch.Mood) {
		return nil, fmt.Errorf("%w: unknown mood %q", ErrInvalidInput, *patch.Mood)
	}
	if patch.Camera != nil && !models.ValidCamera(*patch.Camera) {
		return nil, fmt.Errorf("%w: unknown camera movement %q", ErrInvalidInput, *patch.Camera)
	}

	sess.ApplyConfig(patch)
	return sess.Snapshot(), nil
}

func (s *Service) ToggleArchetype(id, archetype string) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if !models.ValidArchetype(archetype) {
		return nil, fmt.Errorf("%w: unknown archetype %q", ErrInvalidInput, archetype)
	}

	sess.ToggleArchetype(archetype)
	return sess.Snapshot(), nil
}

// StartAnalysis moves CONFIGURE to ANALYZING and launches the combined
// analyze+storyboard run in the background. At least one archetype must be
// selected; the transition does not fire without one.
func (s *Service) StartAnalysis(id string) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if !sess.phase.Allows(TriggerAnalysisStarted) {
		sess.mu.Unlock()
		return nil, ErrIllegalPhase
	}
	if len(sess.config.Archetypes) == 0 {
		sess.setError(ErrorKindInput, msgNoArchetypes)
		sess.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, msgNoArchetypes)
	}
	if sess.scriptFile == "" {
		sess.mu.Unlock()
		return nil, ErrIllegalPhase
	}

	sess.clearErrorLocked()
	gen, ctx := sess.beginOperationLocked()
	client := s.newClient(sess.apiKey)
	spool := sess.scriptFile
	cfg := sess.config.Clone()
	sess.advance(TriggerAnalysisStarted)
	sess.mu.Unlock()

	log.Info().Str("project", id).Msg("analysis started")
	go s.runAnalysis(ctx, sess, client, gen, spool, cfg)

	return sess.Snapshot(), nil
}

func (s *Service) runAnalysis(ctx context.Context, sess *Session, client GenerationClient, gen uint64, spool string, cfg models.GenerationConfig) {
	document, err := s.store.ReadFile(spool)
	if err != nil {
		log.Error().Err(err).Str("project", sess.ID).Msg("failed to read spooled screenplay")
		sess.completeAnalysis(gen, nil, fmt.Errorf("%w: %v", ai.ErrAnalysisFailed, err))
		return
	}

	scene, err := client.AnalyzeScreenplay(ctx, document, cfg)
	if err != nil {
		log.Error().Err(err).Str("project", sess.ID).Msg("script analysis failed")
		sess.completeAnalysis(gen, nil, err)
		return
	}

	image, err := client.GenerateStoryboard(ctx, scene.VisualPrompt)
	if err != nil {
		log.Error().Err(err).Str("project", sess.ID).Msg("storyboard generation failed")
		sess.completeAnalysis(gen, nil, err)
		return
	}
	scene.StoryboardImage = image

	log.Info().Str("project", sess.ID).Str("scene", scene.Title).Msg("analysis complete")
	sess.completeAnalysis(gen, scene, nil)
}

// StartVideo launches the long-running render from STORYBOARD, or again from
// RESULT for a regeneration.
func (s *Service) StartVideo(id string) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if !sess.phase.Allows(TriggerVideoStarted) {
		sess.mu.Unlock()
		return nil, ErrIllegalPhase
	}
	if sess.scene == nil || sess.scene.VisualPrompt == "" {
		sess.mu.Unlock()
		return nil, ErrIllegalPhase
	}

	sess.clearErrorLocked()
	sess.videoURL = ""
	gen, ctx := sess.beginOperationLocked()
	client := s.newClient(sess.apiKey)
	prompt := sess.scene.VisualPrompt
	sess.advance(TriggerVideoStarted)
	sess.mu.Unlock()

	log.Info().Str("project", id).Msg("video render started")
	go s.runVideo(ctx, sess, client, gen, prompt)

	return sess.Snapshot(), nil
}

func (s *Service) runVideo(ctx context.Context, sess *Session, client GenerationClient, gen uint64, prompt string) {
	videoURL, err := client.GenerateVideo(ctx, prompt, func(message string) {
		sess.reportProgress(gen, message)
	})
	if err != nil {
		log.Error().Err(err).Str("project", sess.ID).Msg("video render failed")
	} else {
		log.Info().Str("project", sess.ID).Msg("video render complete")
	}
	sess.completeVideo(gen, videoURL, err)
}

// EditStoryboard returns a finished project to the storyboard for subtitle
// and scene touch-ups.
func (s *Service) EditStoryboard(id string) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	ok := sess.advance(TriggerStoryboardEdit)
	sess.mu.Unlock()
	if !ok {
		return nil, ErrIllegalPhase
	}
	return sess.Snapshot(), nil
}

// ReplaceScene swaps the whole scene artifact during storyboard review.
func (s *Service) ReplaceScene(id string, scene *models.MovieScene) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	if scene == nil {
		return nil, fmt.Errorf("%w: scene payload required", ErrInvalidInput)
	}

	sess.mu.Lock()
	if sess.phase != PhaseStoryboard {
		sess.mu.Unlock()
		return nil, ErrIllegalPhase
	}
	sess.scene = scene
	sess.publish(SessionUpdate{Type: UpdateScene, Data: scene.Clone()})
	sess.mu.Unlock()

	return sess.Snapshot(), nil
}

// UpdateSubtitle edits one cue during storyboard review or after the final
// render. Time fields coerce unusable input to 0 instead of failing.
func (s *Service) UpdateSubtitle(id string, index int, field, value string) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	phase := sess.Phase()
	if phase != PhaseStoryboard && phase != PhaseResult {
		return nil, ErrIllegalPhase
	}

	switch field {
	case "text":
		sess.UpdateSubtitleText(index, value)
	case "startTime", "endTime":
		sess.UpdateSubtitleTime(index, field, value)
	default:
		return nil, fmt.Errorf("%w: unknown subtitle field %q", ErrInvalidInput, field)
	}
	return sess.Snapshot(), nil
}

// ResetProject abandons the current screenplay run and returns to UPLOAD.
// The credential and configuration draft survive; any in-flight generation
// is cancelled and its late results are discarded.
func (s *Service) ResetProject(id string) (*Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	if !sess.phase.Allows(TriggerReset) {
		sess.mu.Unlock()
		return nil, ErrIllegalPhase
	}
	spool := sess.resetLocked()
	sess.advance(TriggerReset)
	sess.mu.Unlock()

	if spool != "" {
		if err := s.store.DeleteFile(spool); err != nil {
			log.Warn().Err(err).Str("project", id).Msg("failed to delete spooled screenplay")
		}
	}

	log.Info().Str("project", id).Msg("project reset")
	return sess.Snapshot(), nil
}
