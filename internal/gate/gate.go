package gate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartedu-app/smartedu-api/internal/dto"
	"github.com/smartedu-app/smartedu-api/internal/models"
)

// Session states for one authenticated user.
const (
	StateIdle     = "idle"
	StateChecking = "checking"
	StateBlocking = "blocking"
	StateReleased = "released"
)

// releasedTTL bounds how long a released verdict is trusted before the next
// pending check. Keeps per-request overhead off the database while still
// catching a rollover that ran mid-session.
const releasedTTL = 30 * time.Second

// PendingLister supplies the unanswered promotions addressed to a parent.
type PendingLister interface {
	ListPendingForParent(ctx context.Context, parentID uint, role string) ([]dto.PendingPromotionResponse, error)
}

// Decision is the gate's verdict for one request.
type Decision struct {
	State   string
	Pending []dto.PendingPromotionResponse
	// Current is the promotion the parent should answer next, nil unless
	// blocking.
	Current *dto.PendingPromotionResponse
}

// Blocked reports whether the session must be held on the decision screen.
func (d Decision) Blocked() bool {
	return d.State == StateBlocking
}

type session struct {
	state     string
	cursor    int
	pending   []dto.PendingPromotionResponse
	checkedAt time.Time
}

// Gate holds per-user consent-gate sessions. State is in-memory per node; a
// process restart simply re-activates sessions, and answered records no longer
// match the pending predicate so a reset cursor cannot replay them.
type Gate struct {
	lister PendingLister
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[uint]*session
}

// New constructs a gate backed by the given pending lister.
func New(lister PendingLister, logger zerolog.Logger) *Gate {
	return &Gate{
		lister:   lister,
		logger:   logger.With().Str("component", "promotion_gate").Logger(),
		now:      time.Now,
		sessions: make(map[uint]*session),
	}
}

// Check resolves the gate state for the user. Non-parent roles are always
// released. A parent with unanswered promotions moves to blocking and stays
// there until the batch is exhausted.
func (g *Gate) Check(ctx context.Context, userID uint, role string) (Decision, error) {
	if role != models.RoleParent || userID == 0 {
		return Decision{State: StateReleased}, nil
	}

	g.mu.Lock()
	current, ok := g.sessions[userID]
	if ok && current.state == StateReleased && g.now().Sub(current.checkedAt) < releasedTTL {
		g.mu.Unlock()
		return Decision{State: StateReleased}, nil
	}
	if ok && current.state == StateBlocking && g.cursorValid(current) {
		decision := blockingDecision(current)
		g.mu.Unlock()
		return decision, nil
	}
	g.sessions[userID] = &session{state: StateChecking}
	g.mu.Unlock()

	pending, err := g.lister.ListPendingForParent(ctx, userID, role)
	if err != nil {
		// fail open: a broken check must not lock parents out of the app
		g.mu.Lock()
		delete(g.sessions, userID)
		g.mu.Unlock()
		g.logger.Error().Err(err).Uint("user_id", userID).Msg("pending check failed, releasing gate")
		return Decision{State: StateReleased}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if len(pending) == 0 {
		g.sessions[userID] = &session{state: StateReleased, checkedAt: g.now()}
		return Decision{State: StateReleased}, nil
	}

	fresh := &session{state: StateBlocking, pending: pending}
	g.sessions[userID] = fresh

	return blockingDecision(fresh), nil
}

// Advance moves the cursor after a successful response. When the batch is
// exhausted the session drops back to idle so the next Check re-fetches and
// catches records created meanwhile.
func (g *Gate) Advance(userID uint) {
	g.mu.Lock()
	defer g.mu.Unlock()

	current, ok := g.sessions[userID]
	if !ok || current.state != StateBlocking {
		return
	}

	current.cursor++
	if current.cursor >= len(current.pending) {
		delete(g.sessions, userID)
	}
}

// Reset drops the session, forcing a re-fetch on the next request. Used on
// logout and by the rollover trigger.
func (g *Gate) Reset(userID uint) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, userID)
}

func (g *Gate) cursorValid(s *session) bool {
	return s.cursor < len(s.pending)
}

func blockingDecision(s *session) Decision {
	decision := Decision{
		State:   StateBlocking,
		Pending: s.pending[s.cursor:],
	}
	if s.cursor < len(s.pending) {
		item := s.pending[s.cursor]
		decision.Current = &item
	}
	return decision
}
