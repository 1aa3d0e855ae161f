// Package service wires the static data, game tunables and calculators into
// the single service consumed by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/scenecalc/internal/adapters/repository"
	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/internal/domain/affinity"
	"github.com/okian/scenecalc/internal/domain/availability"
	"github.com/okian/scenecalc/internal/domain/demand"
	"github.com/okian/scenecalc/internal/domain/market"
	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/internal/domain/performance"
	"github.com/okian/scenecalc/internal/domain/production"
	"github.com/okian/scenecalc/internal/domain/shootresults"
	"github.com/okian/scenecalc/internal/domain/signals"
	"github.com/okian/scenecalc/internal/domain/tagquery"
	"github.com/okian/scenecalc/pkg/logger"
)

// engine holds everything built by Start. It is immutable once stored.
type engine struct {
	game *config.GameConfig
	data *repository.StaticData

	affinity     *affinity.Calculator
	performance  *performance.Service
	tags         *tagquery.Service
	demand       *demand.Calculator
	availability *availability.Checker
	market       *market.Resolver
	production   *production.Calculator
	shoot        *shootresults.Calculator
}

// Service implements the API dependencies for the calculation engine.
type Service struct {
	mu sync.RWMutex

	// Sources
	catalogDSN     string
	catalogFile    string
	gameConfigFile string
	reader         repository.Reader
	game           *config.GameConfig
	rand           availability.RandFunc

	// State
	store     *repository.SQLiteStore
	eng       *engine
	bus       *signals.Bus
	stopped   bool
	source    string
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// New constructs a Service. Nothing is loaded until Start.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.bus = signals.New(signals.WithLogger(s.logger.Named("signals")))
	return s
}

// Start loads the static data and game tunables and builds the calculators.
// Calling Start on a started service is a no-op; after Stop it returns
// ErrStopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.eng != nil {
		return nil
	}
	s.logger.Info(ctx, "starting calculation service...")

	if err := s.openStore(ctx); err != nil {
		return err
	}
	reader, err := s.staticSource()
	if err != nil {
		s.closeStore()
		return err
	}
	data, err := repository.LoadAll(ctx, reader)
	if err != nil {
		s.closeStore()
		return fmt.Errorf("load static data: %w", err)
	}
	game, err := s.loadGame(ctx)
	if err != nil {
		s.closeStore()
		return fmt.Errorf("load game config: %w", err)
	}
	eng, err := s.build(data, game)
	if err != nil {
		s.closeStore()
		return err
	}

	s.eng = eng
	s.startedAt = time.Now()
	s.logger.Info(ctx, "calculation service started",
		logger.String("source", s.source),
		logger.Int("tags", data.Catalog.Len()),
		logger.Int("viewerGroups", len(data.ViewerGroups)),
		logger.Int("ageRules", len(game.Scene.AgeBasedAffinityRules)),
	)
	return nil
}

// openStore opens the SQLite store when static data or tunables come from it.
func (s *Service) openStore(ctx context.Context) error {
	needData := s.reader == nil && s.catalogFile == ""
	needGame := s.game == nil && s.gameConfigFile == ""
	if !needData && !needGame {
		return nil
	}
	if s.catalogDSN == "" {
		return ErrNoSource
	}
	store, err := repository.Open(ctx, s.catalogDSN, repository.WithLogger(s.logger.Named("repository")))
	if err != nil {
		return fmt.Errorf("open static data store: %w", err)
	}
	s.store = store
	return nil
}

func (s *Service) staticSource() (repository.Reader, error) {
	switch {
	case s.reader != nil:
		s.source = "custom"
		return s.reader, nil
	case s.catalogFile != "":
		cf, err := repository.LoadCatalogFile(s.catalogFile)
		if err != nil {
			return nil, err
		}
		s.source = s.catalogFile
		return repository.NewFileStore(cf), nil
	default:
		s.source = s.catalogDSN
		return s.store, nil
	}
}

func (s *Service) loadGame(ctx context.Context) (*config.GameConfig, error) {
	switch {
	case s.game != nil:
		return s.game, nil
	case s.gameConfigFile != "":
		return config.LoadGameFile(ctx, s.gameConfigFile)
	default:
		return config.LoadGame(ctx, s.store.GameConfigProvider(ctx), nil)
	}
}

func (s *Service) build(data *repository.StaticData, game *config.GameConfig) (*engine, error) {
	resolver, err := market.NewResolver(data.ViewerGroups)
	if err != nil {
		return nil, fmt.Errorf("resolve viewer groups: %w", err)
	}

	perf := performance.NewService(performance.WithRoleComplements(game.Scene.RoleComplements))
	checkerOpts := []availability.Option{
		availability.WithPolicies(data.OnSetPolicies),
		availability.WithProductionSettings(data.ProductionSettings),
		availability.WithLogger(s.logger.Named("availability")),
	}
	if s.rand != nil {
		checkerOpts = append(checkerOpts, availability.WithRand(s.rand))
	}

	return &engine{
		game:         game,
		data:         data,
		affinity:     affinity.NewCalculator(game.Scene, affinity.WithLogger(s.logger.Named("affinity"))),
		performance:  perf,
		tags:         tagquery.NewService(data.Catalog, tagquery.WithLogger(s.logger.Named("tagquery"))),
		demand:       demand.NewCalculator(game.Hiring, perf),
		availability: availability.NewChecker(game.Hiring, data.Catalog, checkerOpts...),
		market:       resolver,
		production:   production.NewCalculator(data.ProductionSettings, data.OnSetPolicies),
		shoot:        shootresults.NewCalculator(game.Scene, perf),
	}, nil
}

func (s *Service) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing static data store", logger.Error(err))
	}
	s.store = nil
}

// Stop releases the store and tears down the event bus. A stopped service
// cannot be restarted; build a new one with New instead.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	s.bus.Close()
	if s.eng == nil {
		s.closeStore()
		return
	}

	s.logger.Info(context.Background(), "stopping calculation service...")
	s.closeStore()
	s.eng = nil
	s.logger.Info(context.Background(), "calculation service stopped")
}

func (s *Service) current() (*engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.eng == nil {
		return nil, ErrNotStarted
	}
	return s.eng, nil
}

// Bus returns the session event bus.
func (s *Service) Bus() *signals.Bus {
	return s.bus
}

// GameConfig returns the loaded game tunables.
func (s *Service) GameConfig() (*config.GameConfig, error) {
	eng, err := s.current()
	if err != nil {
		return nil, err
	}
	return eng.game, nil
}

// TagsForPlanner returns the planner view of every tag of tagType.
func (s *Service) TagsForPlanner(tagType string) (tagquery.PlannerTags, error) {
	eng, err := s.current()
	if err != nil {
		return tagquery.PlannerTags{}, err
	}
	return eng.tags.TagsForPlanner(tagType), nil
}

// TagDefinition returns a copy of the tag with the given full name.
func (s *Service) TagDefinition(name string) (model.TagDefinition, error) {
	eng, err := s.current()
	if err != nil {
		return model.TagDefinition{}, err
	}
	def, ok := eng.tags.TagDefinition(name)
	if !ok {
		return model.TagDefinition{}, fmt.Errorf("%w: %q", ErrUnknownTag, name)
	}
	return def, nil
}

// FinalModifier computes the baseKey modifier of role within seg, using the
// slot definition of the segment's tag.
func (s *Service) FinalModifier(baseKey string, seg model.ActionSegment, role string) (float64, error) {
	eng, err := s.current()
	if err != nil {
		return 0, err
	}
	def, ok := eng.tags.TagDefinition(seg.TagName)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTag, seg.TagName)
	}
	slot, ok := def.Slot(role)
	if !ok {
		return 0, fmt.Errorf("%w: %q has no %q slot", ErrUnknownRole, seg.TagName, role)
	}
	return eng.performance.FinalModifier(baseKey, slot, seg, role), nil
}

// StaminaCost returns the stamina a performer spends across the scene.
func (s *Service) StaminaCost(scene model.Scene, vpID int) (float64, error) {
	eng, err := s.current()
	if err != nil {
		return 0, err
	}
	return eng.performance.SceneStaminaCost(scene, vpID, eng.data.Catalog), nil
}

// RecalculateAffinities applies the age rules to talents and returns the
// new affinities of the talents that changed. A TalentAffinitiesChanged
// event is emitted when at least one talent changed.
func (s *Service) RecalculateAffinities(ctx context.Context, talents []model.Talent) (map[int]map[string]float64, error) {
	eng, err := s.current()
	if err != nil {
		return nil, err
	}
	changed := eng.affinity.RecalculateRoster(ctx, talents)
	if len(changed) > 0 {
		s.bus.Emit(ctx, signals.TalentAffinitiesChanged{Affinities: changed})
	}
	return changed, nil
}

// TalentDemand returns the fee the talent asks for playing vpID in scene.
func (s *Service) TalentDemand(t model.Talent, scene model.Scene, vpID int) (int, error) {
	eng, err := s.current()
	if err != nil {
		return 0, err
	}
	return eng.demand.Calculate(t, scene, vpID, eng.data.Catalog), nil
}

// CheckAvailability reports whether the talent accepts playing vpID in scene.
// The fatigue the role would cause is estimated from the talent's stamina
// pool. bloc may be nil when the scene is not yet assigned to a shooting bloc.
func (s *Service) CheckAvailability(
	ctx context.Context,
	t model.Talent,
	scene model.Scene,
	vpID int,
	bloc *model.ShootingBloc,
	bookings availability.Bookings,
) (availability.Result, error) {
	eng, err := s.current()
	if err != nil {
		return availability.Result{}, err
	}
	fatigue := eng.shoot.EstimateFatigueGain(t, scene, vpID, eng.data.Catalog)
	return eng.availability.Check(ctx, t, scene, vpID, bloc, bookings, fatigue), nil
}

// EstimateFatigue returns the fatigue the talent would gain playing vpID in
// scene, ignoring their current fatigue.
func (s *Service) EstimateFatigue(t model.Talent, scene model.Scene, vpID int) (int, error) {
	eng, err := s.current()
	if err != nil {
		return 0, err
	}
	return eng.shoot.EstimateFatigueGain(t, scene, vpID, eng.data.Catalog), nil
}

// ShootOutcome returns the stamina, fatigue, skill and experience effects of
// the talent shooting vpID in scene during week of year.
func (s *Service) ShootOutcome(t model.Talent, scene model.Scene, vpID, week, year int) (shootresults.Outcome, error) {
	eng, err := s.current()
	if err != nil {
		return shootresults.Outcome{}, err
	}
	return eng.shoot.Outcome(t, scene, vpID, eng.data.Catalog, week, year), nil
}

// ViewerGroup returns the resolved viewer group name.
func (s *Service) ViewerGroup(name string) (model.ViewerGroup, error) {
	eng, err := s.current()
	if err != nil {
		return model.ViewerGroup{}, err
	}
	g, ok := eng.market.Group(name)
	if !ok {
		return model.ViewerGroup{}, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}
	return g, nil
}

// ViewerGroupNames returns the resolved group names in sorted order.
func (s *Service) ViewerGroupNames() ([]string, error) {
	eng, err := s.current()
	if err != nil {
		return nil, err
	}
	return eng.market.Names(), nil
}

// RecoverSaturation moves every saturation value toward 1.0 by the
// configured weekly rate. A MarketChanged event is emitted when any value
// moved.
func (s *Service) RecoverSaturation(ctx context.Context, current map[string]float64) (map[string]float64, error) {
	eng, err := s.current()
	if err != nil {
		return nil, err
	}
	next, changed := market.RecoverSaturation(eng.game.Market.SaturationRecoveryRate, current)
	if changed {
		s.bus.Emit(ctx, signals.MarketChanged{})
	}
	return next, nil
}

// ShootingBlocCost returns the total cost of a bloc of numScenes scenes.
func (s *Service) ShootingBlocCost(numScenes int, settings map[string]string, policies []string) (int, error) {
	eng, err := s.current()
	if err != nil {
		return 0, err
	}
	return eng.production.ShootingBlocCost(numScenes, settings, policies), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.eng != nil,
		"stopped":     s.stopped,
		"subscribers": s.bus.Len(),
	}

	if s.eng != nil {
		tiers := 0
		for _, ts := range s.eng.data.ProductionSettings {
			tiers += len(ts)
		}
		stats["source"] = s.source
		stats["uptimeSeconds"] = int(time.Since(s.startedAt).Seconds())
		stats["tags"] = s.eng.data.Catalog.Len()
		stats["cachedTagTypes"] = s.eng.tags.CachedTypes()
		stats["viewerGroups"] = len(s.eng.data.ViewerGroups)
		stats["productionTiers"] = tiers
		stats["onSetPolicies"] = len(s.eng.data.OnSetPolicies)
		stats["ageRules"] = len(s.eng.affinity.Rules())
	}
	return stats
}
