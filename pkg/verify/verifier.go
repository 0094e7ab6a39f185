// Package verify orchestrates the verification pipeline: frames are turned
// into feature vectors, gated by liveness, compared against the enrolled
// reference profile, and unauthorized faces are handed to the watchlist.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/SBanditaDas/facesentinel/pkg/landmark"
	"github.com/SBanditaDas/facesentinel/pkg/liveness"
	"github.com/SBanditaDas/facesentinel/pkg/logging"
	"github.com/SBanditaDas/facesentinel/pkg/similarity"
	"github.com/SBanditaDas/facesentinel/pkg/watchlist"
)

// Frame is one encoded image from the frame source collaborator.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// Observation is what the detector collaborator reports for a frame with a
// face: the 68-point landmark set, the bounding box, and the raw RGBA crop
// of the box region (Width*Height*4 bytes) for pixel analysis.
type Observation struct {
	Landmarks landmark.Set
	Box       landmark.BoundingBox
	Pixels    []byte
	Width     int
	Height    int
}

// Detector is the external face detector collaborator.
type Detector interface {
	// Detect returns the observation for the single face in the frame,
	// or ErrNoFaceDetected when the frame holds none.
	Detect(frame []byte) (*Observation, error)
}

// FrameSource is the external video capture collaborator.
type FrameSource interface {
	ReadFrame() (*Frame, error)
}

// ErrNoFaceDetected is the detector's no-face signal. It is not a pipeline
// error: the frame is skipped and the motion history left untouched.
var ErrNoFaceDetected = errors.New("no face detected")

// ErrSessionActive is returned when an operation cannot run while a
// verification session is in progress.
var ErrSessionActive = errors.New("verification session active")

// ErrPassInFlight is returned when a verification pass is already running.
var ErrPassInFlight = errors.New("verification pass already in flight")

// ErrNoSamples is returned when enrollment found no usable face in any
// provided sample.
var ErrNoSamples = errors.New("no usable enrollment samples")

// Outcome is the result of one verification pass.
type Outcome struct {
	Timestamp    time.Time
	FaceFound    bool
	Liveness     *liveness.Result
	Verification *similarity.Result
	Encounter    *watchlist.Entry
	Err          error
}

// Config parameterizes the pipeline.
type Config struct {
	// Interval is the periodic verification cadence.
	Interval    time.Duration
	Similarity  similarity.Config
	Liveness    liveness.Config
	LogCapacity int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    500 * time.Millisecond,
		Similarity:  similarity.DefaultConfig(),
		Liveness:    liveness.DefaultConfig(),
		LogCapacity: watchlist.DefaultCapacity,
	}
}

// Verifier drives the pipeline. It holds the single enrolled reference
// profile (last write wins), a per-session liveness analyzer, and the
// watchlist registry. At most one verification pass is ever in flight:
// periodic ticks that fire while a pass is still running are dropped, never
// queued, and a stopped session invalidates passes still resolving so their
// results are not applied to shared state.
type Verifier struct {
	cfg      Config
	detector Detector
	frames   FrameSource

	engine   *similarity.Engine
	analyzer *liveness.Analyzer
	registry *watchlist.Registry

	inFlight atomic.Bool

	mu        sync.Mutex
	reference landmark.FeatureVector
	session   uuid.UUID
	onResult  func(Outcome)
}

// NewVerifier creates a Verifier around the two external collaborators.
// Zero-valued config fields fall back to defaults.
func NewVerifier(cfg Config, detector Detector, frames FrameSource) *Verifier {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.LogCapacity <= 0 {
		cfg.LogCapacity = def.LogCapacity
	}

	engine := similarity.NewEngine(cfg.Similarity)
	return &Verifier{
		cfg:      cfg,
		detector: detector,
		frames:   frames,
		engine:   engine,
		analyzer: liveness.NewAnalyzer(cfg.Liveness),
		registry: watchlist.NewRegistry(engine, cfg.LogCapacity),
	}
}

// SetResultHandler registers the callback invoked with the outcome of every
// pass that completes while its session is still active.
func (v *Verifier) SetResultHandler(fn func(Outcome)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onResult = fn
}

// SetReference installs a feature vector as the enrolled identity,
// replacing any previous one.
func (v *Verifier) SetReference(vec landmark.FeatureVector) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reference = vec.Clone()
}

// Reference returns the enrolled feature vector, or nil when none is set.
func (v *Verifier) Reference() landmark.FeatureVector {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reference
}

// ResetProfile clears the enrolled identity.
func (v *Verifier) ResetProfile() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reference = nil
	logging.Info("reference profile cleared")
}

// Enroll extracts a feature vector from each sample image, averages them
// into a reference profile and installs it. Samples without a usable face
// are skipped. Enrollment is rejected while a verification session is
// active; callers must stop verification before re-enrolling.
func (v *Verifier) Enroll(samples [][]byte) (landmark.FeatureVector, error) {
	if v.sessionActive() {
		return nil, ErrSessionActive
	}

	var vectors []landmark.FeatureVector
	for i, sample := range samples {
		obs, err := v.detector.Detect(sample)
		if err != nil {
			logging.Warnf("enrollment sample %d skipped: %v", i, err)
			continue
		}
		vec, err := landmark.Extract(obs.Landmarks, obs.Box)
		if err != nil {
			logging.Warnf("enrollment sample %d skipped: %v", i, err)
			continue
		}
		vectors = append(vectors, vec)
	}
	if len(vectors) == 0 {
		return nil, ErrNoSamples
	}

	ref := landmark.Mean(vectors)
	v.SetReference(ref)
	logging.Infof("reference profile enrolled from %d of %d samples", len(vectors), len(samples))
	return ref, nil
}

// StartSession begins a verification session: the motion history is reset
// and a fresh session id issued. In-flight passes from a previous session
// see the id change and discard their results.
func (v *Verifier) StartSession() uuid.UUID {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session = uuid.New()
	v.analyzer.Reset()
	logging.Debugf("verification session %s started", v.session)
	return v.session
}

// StopSession ends the current session, invalidating any pass still in
// flight.
func (v *Verifier) StopSession() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session = uuid.Nil
}

func (v *Verifier) sessionActive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session != uuid.Nil
}

func (v *Verifier) sessionAlive(id uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session == id
}

// Run starts a session and verifies periodically until the context is
// cancelled. A tick that fires while the previous pass has not resolved is
// dropped to avoid backlog and out-of-order result application.
func (v *Verifier) Run(ctx context.Context) error {
	if v.sessionActive() {
		return ErrSessionActive
	}
	id := v.StartSession()
	defer v.StopSession()

	ticker := time.NewTicker(v.cfg.Interval)
	defer ticker.Stop()

	logging.Infof("verification loop running every %s", v.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !v.inFlight.CompareAndSwap(false, true) {
				logging.Debug("previous pass still in flight, dropping tick")
				continue
			}
			go func() {
				defer v.inFlight.Store(false)
				if out := v.runPass(id); out != nil {
					v.deliver(*out)
				}
			}()
		}
	}
}

// VerifyOnce performs a single synchronous verification pass in its own
// short-lived session.
func (v *Verifier) VerifyOnce() (Outcome, error) {
	if !v.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, ErrPassInFlight
	}
	defer v.inFlight.Store(false)

	if v.sessionActive() {
		return Outcome{}, ErrSessionActive
	}
	id := v.StartSession()
	defer v.StopSession()

	out := v.runPass(id)
	if out == nil {
		return Outcome{}, ErrSessionActive
	}
	return *out, nil
}

// runPass executes one full pipeline pass. It returns nil when the session
// was stopped or superseded while the pass was resolving; a nil outcome
// must not be applied anywhere.
func (v *Verifier) runPass(session uuid.UUID) *Outcome {
	out := &Outcome{Timestamp: time.Now()}

	frame, err := v.frames.ReadFrame()
	if err != nil {
		out.Err = fmt.Errorf("read frame: %w", err)
		return v.ifAlive(session, out)
	}

	obs, err := v.detector.Detect(frame.Data)
	if errors.Is(err, ErrNoFaceDetected) {
		return v.ifAlive(session, out)
	}
	if err != nil {
		out.Err = fmt.Errorf("detect face: %w", err)
		return v.ifAlive(session, out)
	}

	// Detection is an asynchronous external call; nothing below may touch
	// shared state if the session ended in the meantime.
	if !v.sessionAlive(session) {
		return nil
	}
	out.FaceFound = true

	vec, err := landmark.Extract(obs.Landmarks, obs.Box)
	if err != nil {
		out.Err = fmt.Errorf("extract features: %w", err)
		return out
	}

	live := v.analyzer.Analyze(obs.Pixels, obs.Width, obs.Height, obs.Landmarks)
	out.Liveness = &live
	if !live.IsLive {
		logging.Warnf("possible spoofing attempt: %s", live.Reason)
		return out
	}

	res := v.engine.Compare(v.Reference(), vec)
	out.Verification = &res
	if !res.IsSame {
		if !v.sessionAlive(session) {
			return nil
		}
		entry := v.registry.LogEncounter(vec)
		out.Encounter = &entry
		logging.Infof("unauthorized face logged as %s (similarity %.2f, level %s)",
			entry.Label, res.Similarity, res.Level)
	}
	return out
}

func (v *Verifier) ifAlive(session uuid.UUID, out *Outcome) *Outcome {
	if !v.sessionAlive(session) {
		return nil
	}
	return out
}

func (v *Verifier) deliver(out Outcome) {
	v.mu.Lock()
	handler := v.onResult
	v.mu.Unlock()
	if handler != nil {
		handler(out)
	}
}

// Encounters returns the watchlist log, oldest first.
func (v *Verifier) Encounters() []watchlist.Entry {
	return v.registry.Entries()
}

// People reports how many distinct unauthorized identities have been seen.
func (v *Verifier) People() int {
	return v.registry.People()
}

// ClearLog drops the watchlist log and its identities.
func (v *Verifier) ClearLog() {
	v.registry.Clear()
}
