package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aushadhi/client/internal/domain"
	"github.com/aushadhi/client/internal/logging"
)

// Phase is the lifecycle phase of a submission session
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnalyzing
	PhaseResolved
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseResolved:
		return "resolved"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is a snapshot of the current submission session. Response is shared
// between snapshots and must be treated as read-only.
type State struct {
	SessionID  uint64
	Phase      Phase
	Err        string
	Response   *domain.InferenceResponse
	PreviewRef string
	Filename   string
}

// Ticket identifies the session started by a capture. Done closes once that
// session's pipeline has settled, whether its outcome was kept or dropped.
type Ticket struct {
	ID   uint64
	Done <-chan struct{}
}

// MachineConfig holds the per-request settings of the pipeline
type MachineConfig struct {
	Params       domain.InferenceParams
	MaxDimension int
	PreviewTTL   time.Duration
}

type listener struct {
	id int
	fn func(State)
}

// Machine is the submission state machine: capture → normalize → submit →
// resolve. Every capture starts a new session with a larger id and only the
// pipeline whose id still matches the current session may write to it.
type Machine struct {
	normalizer domain.ImageNormalizer
	client     domain.InferenceClient
	previews   domain.PreviewStore
	cfg        MachineConfig
	logger     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	state        State
	seq          uint64
	closed       bool
	listeners    []listener
	nextListener int
	pending      []State

	// serializes listener delivery
	notifyMu sync.Mutex
}

// NewMachine creates an idle state machine
func NewMachine(
	normalizer domain.ImageNormalizer,
	client domain.InferenceClient,
	previews domain.PreviewStore,
	cfg MachineConfig,
	logger *zap.Logger,
) *Machine {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 1280
	}
	if cfg.PreviewTTL <= 0 {
		cfg.PreviewTTL = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		normalizer: normalizer,
		client:     client,
		previews:   previews,
		cfg:        cfg,
		logger:     logger.Named("submission"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// State returns the current session snapshot
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn to receive every committed state, in transition
// order. fn must not call Capture or Close synchronously.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// Capture supersedes the current session with a new one for img and starts
// its pipeline. A nil img, or a closed machine, leaves the state untouched.
func (m *Machine) Capture(img domain.ImageHandle) Ticket {
	done := make(chan struct{})

	var (
		id    uint64
		stale string
	)
	_, ok := m.transition(func(s *State) bool {
		if img == nil {
			id = s.SessionID
			return false
		}
		m.seq++
		id = m.seq
		stale = s.PreviewRef
		*s = State{SessionID: id, Phase: PhaseAnalyzing, Filename: img.Name()}
		m.wg.Add(1)
		return true
	})
	if !ok {
		if img == nil {
			m.logger.Debug("capture without file ignored")
		}
		close(done)
		return Ticket{ID: id, Done: done}
	}

	m.logger.Info("capture accepted", zap.Uint64("session", id), zap.String("file", img.Name()))
	if stale != "" {
		m.revoke(stale)
	}

	go m.run(id, img, done)
	return Ticket{ID: id, Done: done}
}

// Close discards the session: in-flight pipelines are cancelled and awaited,
// their outcomes dropped, and the current preview revoked. Later captures are no-ops.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	ref := m.state.PreviewRef
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	if ref != "" {
		m.revoke(ref)
	}
}

func (m *Machine) run(id uint64, img domain.ImageHandle, done chan struct{}) {
	defer m.wg.Done()
	defer close(done)

	opLogger := m.logger.With(zap.Uint64("session", id))

	encoded, err := m.normalizer.Normalize(m.ctx, img, m.cfg.MaxDimension)
	if err != nil {
		m.fail(id, logging.NewOperationError("usecase.normalize", id, err), err)
		return
	}

	ref, err := m.previews.Create(m.ctx, encoded.Data, encoded.ContentType, m.cfg.PreviewTTL)
	if err != nil {
		// previews are display-only; the submission goes on without one
		opLogger.Warn("preview not created", zap.Error(err))
	} else if _, ok := m.commit(id, func(s *State) { s.PreviewRef = ref }); !ok {
		m.revoke(ref)
		opLogger.Debug("session superseded before upload; dropped")
		return
	}

	resp, err := m.client.Submit(m.ctx, encoded, UploadFilename(img.Name()), m.cfg.Params)
	if err == nil {
		err = checkResponse(resp)
	}
	if err != nil {
		m.fail(id, logging.NewOperationError("usecase.submit", id, err), err)
		return
	}

	if _, ok := m.commit(id, func(s *State) {
		s.Phase = PhaseResolved
		s.Response = resp
	}); !ok {
		opLogger.Debug("superseded response dropped")
		return
	}
	opLogger.Info("submission resolved",
		zap.Int("candidates", len(resp.TopK)),
		zap.Bool("mismatch", resp.MismatchFlag),
	)
}

func (m *Machine) fail(id uint64, logged, cause error) {
	msg := UserMessage(cause)
	if _, ok := m.commit(id, func(s *State) {
		s.Phase = PhaseFailed
		s.Err = msg
	}); !ok {
		m.logger.Debug("superseded failure dropped", zap.Uint64("session", id), zap.Error(logged))
		return
	}
	m.logger.Warn("submission failed", zap.Error(logged))
}

// commit applies fn only if id still names the current session
func (m *Machine) commit(id uint64, fn func(*State)) (State, bool) {
	return m.transition(func(s *State) bool {
		if s.SessionID != id {
			return false
		}
		fn(s)
		return true
	})
}

// transition runs apply under the session lock and, if it reports a change,
// queues the new snapshot for listeners.
func (m *Machine) transition(apply func(*State) bool) (State, bool) {
	m.mu.Lock()
	if m.closed || !apply(&m.state) {
		m.mu.Unlock()
		return State{}, false
	}
	snapshot := m.state
	m.pending = append(m.pending, snapshot)
	m.mu.Unlock()

	m.drain()
	return snapshot, true
}

// drain delivers queued snapshots in the order they were committed
func (m *Machine) drain() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return
		}
		next := m.pending[0]
		m.pending = m.pending[1:]
		listeners := append([]listener(nil), m.listeners...)
		m.mu.Unlock()

		for _, l := range listeners {
			l.fn(next)
		}
	}
}

func (m *Machine) revoke(ref string) {
	if err := m.previews.Revoke(context.Background(), ref); err != nil {
		m.logger.Warn("preview revoke failed", zap.String("ref", ref), zap.Error(err))
	}
}

func checkResponse(resp *domain.InferenceResponse) error {
	if resp == nil {
		return &domain.RequestError{Message: "Malformed inference response: empty response"}
	}
	if err := resp.Validate(); err != nil {
		return &domain.RequestError{Message: "Malformed inference response: " + err.Error(), Err: err}
	}
	return nil
}

// UserMessage maps a pipeline error to the text shown after "Error: "
func UserMessage(err error) string {
	var reqErr *domain.RequestError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &reqErr):
		return reqErr.Error()
	case errors.Is(err, domain.ErrDecode):
		return "Upload failed: " + domain.ErrDecode.Error()
	case errors.Is(err, domain.ErrEncode):
		return "Upload failed: " + domain.ErrEncode.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Upload failed"
}
