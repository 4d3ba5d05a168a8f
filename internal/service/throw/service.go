package throw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/zhouzirui/insight-dice/backend/internal/model/catalog"
	"github.com/zhouzirui/insight-dice/backend/internal/model/session"
	throwmodel "github.com/zhouzirui/insight-dice/backend/internal/model/throw"
)

// Generator produces the narrative parts of a throw.
type Generator interface {
	Interpret(ctx context.Context, situation string, spread []throwmodel.Placement) (string, error)
	SuggestPaths(ctx context.Context, situation string, spread []throwmodel.Placement, interpretation string, paths []catalog.Path) (map[catalog.PathKey]string, error)
	ReflectionPrompts(ctx context.Context, situation string, path catalog.Path, spread []throwmodel.Placement) ([]string, error)
}

// Repository is the part of the throw storage the state machine writes to.
type Repository interface {
	TouchUser(ctx context.Context, userID string) error
	CreateThrow(ctx context.Context, userID, situation string, spread throwmodel.Spread) (string, error)
	UpdateThrow(ctx context.Context, id string, update throwmodel.Update) error
}

// Drawer samples distinct symbols from a catalog.
type Drawer interface {
	Draw(symbols []catalog.Symbol, count int) ([]catalog.Symbol, error)
}

// SessionStore holds the per-user session by value.
type SessionStore interface {
	Get(userID string) (session.Session, bool)
	Save(sess session.Session)
	Delete(userID string)
}

// Config tunes the state machine.
type Config struct {
	GenerationTimeout    time.Duration
	UpdateAttempts       uint
	UpdateDelay          time.Duration
	MaxSituationLength   int
	MaxReflectionPrompts int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		GenerationTimeout:    30 * time.Second,
		UpdateAttempts:       3,
		UpdateDelay:          200 * time.Millisecond,
		MaxSituationLength:   4000,
		MaxReflectionPrompts: 5,
	}
}

// Deps are the collaborators of the Service.
type Deps struct {
	Catalog    catalog.Store
	Drawer     Drawer
	Generator  Generator
	Repository Repository
	Sessions   SessionStore
	Logger     *zap.Logger
	Now        func() time.Time
}

// View is a read-only snapshot of a user's session. SpreadIDs replaces the session's
// fixed-size spread in JSON so that sessions without a throw omit it.
type View struct {
	session.Session
	SpreadIDs  []string               `json:"spread,omitempty"`
	Placements []throwmodel.Placement `json:"placements,omitempty"`
}

// CancelResult reports whether a session was discarded.
type CancelResult struct {
	Cancelled bool `json:"cancelled"`
}

// PathSuggestion is the text offered for one path. Fallback marks the static description.
type PathSuggestion struct {
	Path     catalog.Path `json:"path"`
	Text     string       `json:"text"`
	Fallback bool         `json:"fallback"`
}

// SituationResult is returned once the dice are thrown and interpreted.
type SituationResult struct {
	ThrowID        string                 `json:"throwId"`
	Situation      string                 `json:"situation"`
	Spread         []throwmodel.Placement `json:"spread"`
	Interpretation string                 `json:"interpretation"`
	Suggestions    []PathSuggestion       `json:"suggestions"`
}

// PathResult closes a throw. Degraded is set when no reflection prompts could be generated.
type PathResult struct {
	ThrowID  string       `json:"throwId"`
	Path     catalog.Path `json:"path"`
	Prompts  []string     `json:"prompts"`
	Degraded bool         `json:"degraded"`
}

// Service drives the per-user throw state machine.
type Service struct {
	catalog   catalog.Store
	positions []catalog.Position
	drawer    Drawer
	generator Generator
	repo      Repository
	sessions  SessionStore
	logger    *zap.Logger
	now       func() time.Time
	cfg       Config
	guard     *guard
}

// NewService validates deps and returns a ready Service.
func NewService(deps Deps, cfg Config) (*Service, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("throw service: catalog is required")
	case deps.Drawer == nil:
		return nil, errors.New("throw service: drawer is required")
	case deps.Generator == nil:
		return nil, errors.New("throw service: generator is required")
	case deps.Repository == nil:
		return nil, errors.New("throw service: repository is required")
	case deps.Sessions == nil:
		return nil, errors.New("throw service: session store is required")
	}

	positions := deps.Catalog.Positions()
	if len(positions) != throwmodel.SpreadSize {
		return nil, fmt.Errorf("throw service: want %d positions, got %d", throwmodel.SpreadSize, len(positions))
	}
	if n := len(deps.Catalog.Symbols()); n < throwmodel.SpreadSize {
		return nil, fmt.Errorf("throw service: catalog has %d symbols, need %d", n, throwmodel.SpreadSize)
	}

	defaults := DefaultConfig()
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaults.GenerationTimeout
	}
	if cfg.UpdateAttempts == 0 {
		cfg.UpdateAttempts = 1
	}
	if cfg.MaxSituationLength <= 0 {
		cfg.MaxSituationLength = defaults.MaxSituationLength
	}
	if cfg.MaxReflectionPrompts <= 0 {
		cfg.MaxReflectionPrompts = defaults.MaxReflectionPrompts
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		catalog:   deps.Catalog,
		positions: positions,
		drawer:    deps.Drawer,
		generator: deps.Generator,
		repo:      deps.Repository,
		sessions:  deps.Sessions,
		logger:    logger.Named("throw"),
		now:       now,
		cfg:       cfg,
		guard:     newGuard(),
	}, nil
}

// Begin discards any session of the user and starts a new one.
func (s *Service) Begin(ctx context.Context, userID string) (View, error) {
	release, err := s.lock(userID)
	if err != nil {
		return View{}, err
	}
	defer release()

	s.sessions.Delete(userID)
	sess := session.New(userID, s.now())
	s.sessions.Save(sess)

	log := s.logger.With(zap.String("user_id", userID))
	s.bestEffort(ctx, log, "touch_user", func() error { return s.repo.TouchUser(ctx, userID) })

	log.Info("throw started")
	return View{Session: sess}, nil
}

// Cancel discards the user's session. Cancelling without a session is a no-op.
func (s *Service) Cancel(_ context.Context, userID string) (CancelResult, error) {
	release, err := s.lock(userID)
	if err != nil {
		return CancelResult{}, err
	}
	defer release()

	sess, ok := s.sessions.Get(userID)
	if !ok || sess.Step == session.StepIdle {
		return CancelResult{Cancelled: false}, nil
	}
	s.sessions.Delete(userID)

	s.logger.Info("throw cancelled", zap.String("user_id", userID), zap.String("step", string(sess.Step)))
	return CancelResult{Cancelled: true}, nil
}

// SubmitSituation records the situation, throws the dice, persists the throw and
// interprets it. On success the session waits for a path choice.
func (s *Service) SubmitSituation(ctx context.Context, userID, text string) (SituationResult, error) {
	release, err := s.lock(userID)
	if err != nil {
		return SituationResult{}, err
	}
	defer release()

	sess, ok := s.sessions.Get(userID)
	if !ok {
		return SituationResult{}, ErrSessionNotFound
	}
	if sess.Step != session.StepAwaitingSituation {
		return SituationResult{}, fmt.Errorf("%w: situation not expected in step %s", ErrInvalidTransition, sess.Step)
	}

	situation := strings.TrimSpace(text)
	if situation == "" {
		return SituationResult{}, fmt.Errorf("%w: situation must not be empty", ErrValidation)
	}
	if utf8.RuneCountInString(situation) > s.cfg.MaxSituationLength {
		return SituationResult{}, fmt.Errorf("%w: situation longer than %d characters", ErrValidation, s.cfg.MaxSituationLength)
	}
	sess.Situation = situation

	spread, err := s.draw()
	if err != nil {
		s.sessions.Delete(userID)
		return SituationResult{}, err
	}
	sess.Spread = spread
	placements := s.placements(spread)

	throwID, err := s.repo.CreateThrow(ctx, userID, situation, spread)
	if err != nil {
		s.sessions.Delete(userID)
		s.logger.Error("create throw failed", zap.String("user_id", userID), zap.Error(err))
		return SituationResult{}, fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err)
	}
	sess.ThrowID = throwID
	log := s.logger.With(zap.String("user_id", userID), zap.String("throw_id", throwID))

	interpretation, err := s.interpret(ctx, situation, placements)
	if err != nil {
		s.sessions.Delete(userID)
		log.Warn("interpretation failed", zap.Error(err))
		return SituationResult{}, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}
	sess.Interpretation = interpretation
	s.bestEffortUpdate(ctx, log, throwID, "interpretation", throwmodel.Update{Interpretation: &interpretation})

	suggestions := s.suggest(ctx, log, situation, placements, interpretation)
	sess.PathSuggestions = make(map[catalog.PathKey]string, len(suggestions))
	for _, sug := range suggestions {
		sess.PathSuggestions[sug.Path.Key] = sug.Text
	}

	sess.Step = session.StepAwaitingPathChoice
	sess.UpdatedAt = s.now()
	s.sessions.Save(sess)

	log.Info("throw interpreted", zap.Strings("spread", spread.IDs()))
	return SituationResult{
		ThrowID:        throwID,
		Situation:      situation,
		Spread:         placements,
		Interpretation: interpretation,
		Suggestions:    suggestions,
	}, nil
}

// ChoosePath records the chosen path, generates reflection prompts and closes the throw.
func (s *Service) ChoosePath(ctx context.Context, userID, pathKey string) (PathResult, error) {
	release, err := s.lock(userID)
	if err != nil {
		return PathResult{}, err
	}
	defer release()

	sess, ok := s.sessions.Get(userID)
	if !ok {
		return PathResult{}, ErrSessionNotFound
	}
	if sess.Step != session.StepAwaitingPathChoice {
		return PathResult{}, fmt.Errorf("%w: path choice not expected in step %s", ErrInvalidTransition, sess.Step)
	}

	path, ok := s.catalog.FindPath(catalog.PathKey(strings.TrimSpace(pathKey)))
	if !ok {
		return PathResult{}, fmt.Errorf("%w: unknown path %q", ErrValidation, pathKey)
	}

	log := s.logger.With(zap.String("user_id", userID), zap.String("throw_id", sess.ThrowID))
	sess.ChosenPath = path.Key
	chosen := path.Key
	s.bestEffortUpdate(ctx, log, sess.ThrowID, "chosen_path", throwmodel.Update{ChosenPath: &chosen})

	result := PathResult{ThrowID: sess.ThrowID, Path: path}
	prompts, err := s.reflect(ctx, sess.Situation, path, s.placements(sess.Spread))
	if err != nil {
		log.Warn("reflection prompts failed", zap.Error(err))
		result.Degraded = true
	} else {
		result.Prompts = prompts
		s.bestEffortUpdate(ctx, log, sess.ThrowID, "reflection_prompts", throwmodel.Update{ReflectionPrompts: prompts})
	}

	s.sessions.Delete(userID)
	log.Info("throw completed", zap.String("path", string(path.Key)), zap.Bool("degraded", result.Degraded))
	return result, nil
}

// Status returns the user's session without touching it. Users without a session are IDLE.
func (s *Service) Status(userID string) View {
	sess, ok := s.sessions.Get(userID)
	if !ok {
		return View{Session: session.Session{UserID: userID, Step: session.StepIdle}}
	}
	view := View{Session: sess}
	if !sess.Spread.IsZero() {
		view.SpreadIDs = sess.Spread.IDs()
		view.Placements = s.placements(sess.Spread)
	}
	return view
}

func (s *Service) lock(userID string) (func(), error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !s.guard.tryAcquire(userID) {
		return nil, ErrBusy
	}
	return func() { s.guard.release(userID) }, nil
}

func (s *Service) draw() (throwmodel.Spread, error) {
	drawn, err := s.drawer.Draw(s.catalog.Symbols(), throwmodel.SpreadSize)
	if err != nil {
		return throwmodel.Spread{}, fmt.Errorf("draw symbols: %w", err)
	}
	ids := make([]string, len(drawn))
	for i, sym := range drawn {
		ids[i] = sym.ID
	}
	return throwmodel.NewSpread(ids)
}

func (s *Service) placements(spread throwmodel.Spread) []throwmodel.Placement {
	out := make([]throwmodel.Placement, 0, len(spread))
	for i, id := range spread {
		sym, ok := s.catalog.FindSymbol(id)
		if !ok {
			sym = catalog.Symbol{ID: id, Name: id}
		}
		out = append(out, throwmodel.Placement{Position: s.positions[i], Symbol: sym})
	}
	return out
}

func (s *Service) interpret(ctx context.Context, situation string, placements []throwmodel.Placement) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	text, err := s.generator.Interpret(ctx, situation, placements)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty interpretation")
	}
	return text, nil
}

// suggest returns one suggestion per path, in catalog order, falling back to the path description.
func (s *Service) suggest(ctx context.Context, log *zap.Logger, situation string, placements []throwmodel.Placement, interpretation string) []PathSuggestion {
	paths := s.catalog.Paths()

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	generated, err := s.generator.SuggestPaths(genCtx, situation, placements, interpretation, paths)
	cancel()
	if err != nil {
		log.Warn("path suggestions failed, using descriptions", zap.Error(err))
		generated = nil
	}

	out := make([]PathSuggestion, 0, len(paths))
	for _, p := range paths {
		text := strings.TrimSpace(generated[p.Key])
		if text == "" {
			out = append(out, PathSuggestion{Path: p, Text: p.Description, Fallback: true})
			continue
		}
		out = append(out, PathSuggestion{Path: p, Text: text})
	}
	return out
}

func (s *Service) reflect(ctx context.Context, situation string, path catalog.Path, placements []throwmodel.Placement) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	raw, err := s.generator.ReflectionPrompts(ctx, situation, path, placements)
	if err != nil {
		return nil, err
	}

	prompts := make([]string, 0, s.cfg.MaxReflectionPrompts)
	for _, p := range raw {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		prompts = append(prompts, p)
		if len(prompts) == s.cfg.MaxReflectionPrompts {
			break
		}
	}
	if len(prompts) == 0 {
		return nil, errors.New("no reflection prompts")
	}
	return prompts, nil
}

// bestEffortUpdate retries a partial update a few times and drops it on failure.
func (s *Service) bestEffortUpdate(ctx context.Context, log *zap.Logger, throwID, field string, update throwmodel.Update) {
	s.bestEffort(ctx, log, field, func() error { return s.repo.UpdateThrow(ctx, throwID, update) })
}

// bestEffort runs a non-critical write with bounded retries. Failures are logged, never returned.
func (s *Service) bestEffort(ctx context.Context, log *zap.Logger, field string, write func() error) {
	err := retry.Do(
		write,
		retry.Context(ctx),
		retry.Attempts(s.cfg.UpdateAttempts),
		retry.Delay(s.cfg.UpdateDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, throwmodel.ErrRecordNotFound)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Debug("retrying best-effort write", zap.String("field", field), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		log.Warn("best-effort write dropped", zap.String("field", field), zap.Error(err))
	}
}
