package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/pkg/logger"
	"github.com/okian/scenecalc/pkg/metrics"
)

// defaultPragmas uses the modernc driver's _pragma query syntax.
const defaultPragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

const schema = `
CREATE TABLE IF NOT EXISTS scene_tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	orientation TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	concept TEXT NOT NULL DEFAULT '',
	categories_json TEXT,
	slots_json TEXT,
	expands_to_json TEXT,
	UNIQUE (name, orientation)
);

CREATE TABLE IF NOT EXISTS viewer_groups (
	name TEXT PRIMARY KEY,
	inherits_from TEXT NOT NULL DEFAULT '',
	market_share_percent REAL,
	spending_power REAL,
	focus_bonus REAL,
	preferences_json TEXT,
	popularity_spillover_json TEXT
);

CREATE TABLE IF NOT EXISTS production_settings_definitions (
	category TEXT NOT NULL,
	tier_name TEXT NOT NULL,
	cost_per_scene REAL NOT NULL DEFAULT 0,
	cost_multiplier REAL,
	is_low_tier INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (category, tier_name)
);

CREATE TABLE IF NOT EXISTS on_set_policies_definitions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	cost_per_bloc REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS game_config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore reads and writes static game data in a SQLite database.
type SQLiteStore struct {
	conn    *sqlx.DB
	log     logger.Logger
	pragmas string
}

// Open opens or creates the database at dsn and migrates the schema.
func Open(ctx context.Context, dsn string, opts ...Option) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	s := &SQLiteStore{log: logger.Nop(), pragmas: defaultPragmas}
	for _, opt := range opts {
		opt(s)
	}

	conn, err := sqlx.Open("sqlite", withQuery(dsn, s.pragmas))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s.conn = conn

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.log.Debug(ctx, "static data store opened", logger.String("dsn", dsn))
	return s, nil
}

// withQuery appends params to dsn, joining with '&' when dsn already
// carries a query string.
func withQuery(dsn, params string) string {
	params = strings.TrimLeft(params, "?&")
	if params == "" {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InTx runs fn with a Writer bound to a single transaction. The transaction
// is committed when fn returns nil and rolled back otherwise.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(Writer) error) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txWriter{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error(ctx, "rollback failed", logger.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txWriter writes through an open transaction.
type txWriter struct {
	tx *sqlx.Tx
}

func (w txWriter) PutTag(ctx context.Context, def model.TagDefinition) error {
	return putTag(ctx, w.tx, def)
}

func (w txWriter) PutViewerGroup(ctx context.Context, g model.ViewerGroup) error {
	return putViewerGroup(ctx, w.tx, g)
}

func (w txWriter) PutProductionTier(ctx context.Context, category string, t model.ProductionTier) error {
	return putProductionTier(ctx, w.tx, category, t)
}

func (w txWriter) PutOnSetPolicy(ctx context.Context, p model.OnSetPolicy) error {
	return putOnSetPolicy(ctx, w.tx, p)
}

func (w txWriter) PutGameConfig(ctx context.Context, key string, value any) error {
	return putGameConfig(ctx, w.tx, key, value)
}

type tagRow struct {
	Name        string  `db:"name"`
	Orientation string  `db:"orientation"`
	Type        string  `db:"type"`
	Concept     string  `db:"concept"`
	Categories  *string `db:"categories_json"`
	Slots       *string `db:"slots_json"`
	ExpandsTo   *string `db:"expands_to_json"`
}

// TagDefinitions loads the tag catalog. Keys are "name (orientation)" when
// the tag has an orientation and the bare name otherwise.
func (s *SQLiteStore) TagDefinitions(ctx context.Context) (*model.Catalog, error) {
	var rows []tagRow
	if err := s.conn.SelectContext(ctx, &rows,
		`SELECT name, orientation, type, concept, categories_json, slots_json, expands_to_json
		FROM scene_tags ORDER BY id`); err != nil {
		metrics.RecordErrorByComponent("repository", "query")
		return nil, fmt.Errorf("select scene_tags: %w", err)
	}

	catalog := model.NewCatalog()
	for _, r := range rows {
		def := model.TagDefinition{Name: r.Name, Orientation: r.Orientation, Type: r.Type, Concept: r.Concept}
		if err := decodeJSON(r.Categories, &def.Categories); err != nil {
			return nil, fmt.Errorf("%w: tag %q categories: %v", ErrInvalidData, r.Name, err)
		}
		if err := decodeJSON(r.Slots, &def.Slots); err != nil {
			return nil, fmt.Errorf("%w: tag %q slots: %v", ErrInvalidData, r.Name, err)
		}
		if err := decodeJSON(r.ExpandsTo, &def.ExpandsTo); err != nil {
			return nil, fmt.Errorf("%w: tag %q expands_to: %v", ErrInvalidData, r.Name, err)
		}
		catalog.Set(model.FullTagName(def.Name, def.Orientation), def)
	}
	return catalog, nil
}

// PutTag inserts or updates a tag. An existing tag keeps its catalog position.
func (s *SQLiteStore) PutTag(ctx context.Context, def model.TagDefinition) error {
	return putTag(ctx, s.conn, def)
}

func putTag(ctx context.Context, ex execer, def model.TagDefinition) error {
	categories, err := encodeJSON(def.Categories)
	if err != nil {
		return err
	}
	slots, err := encodeJSON(def.Slots)
	if err != nil {
		return err
	}
	expands, err := encodeJSON(def.ExpandsTo)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO scene_tags
		(name, orientation, type, concept, categories_json, slots_json, expands_to_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, orientation) DO UPDATE SET
			type = excluded.type,
			concept = excluded.concept,
			categories_json = excluded.categories_json,
			slots_json = excluded.slots_json,
			expands_to_json = excluded.expands_to_json`,
		def.Name, def.Orientation, def.Type, def.Concept, categories, slots, expands)
	if err != nil {
		return fmt.Errorf("put tag %q: %w", def.Name, err)
	}
	return nil
}

type viewerGroupRow struct {
	Name                string   `db:"name"`
	InheritsFrom        string   `db:"inherits_from"`
	MarketSharePercent  *float64 `db:"market_share_percent"`
	SpendingPower       *float64 `db:"spending_power"`
	FocusBonus          *float64 `db:"focus_bonus"`
	Preferences         *string  `db:"preferences_json"`
	PopularitySpillover *string  `db:"popularity_spillover_json"`
}

// ViewerGroups loads the raw viewer groups ordered by name.
func (s *SQLiteStore) ViewerGroups(ctx context.Context) ([]model.ViewerGroup, error) {
	var rows []viewerGroupRow
	if err := s.conn.SelectContext(ctx, &rows, `SELECT name, inherits_from, market_share_percent, spending_power,
		focus_bonus, preferences_json, popularity_spillover_json FROM viewer_groups ORDER BY name`); err != nil {
		metrics.RecordErrorByComponent("repository", "query")
		return nil, fmt.Errorf("select viewer_groups: %w", err)
	}

	groups := make([]model.ViewerGroup, 0, len(rows))
	for _, r := range rows {
		g := model.ViewerGroup{
			Name:               r.Name,
			InheritsFrom:       r.InheritsFrom,
			MarketSharePercent: r.MarketSharePercent,
			SpendingPower:      r.SpendingPower,
			FocusBonus:         r.FocusBonus,
		}
		if err := decodeJSON(r.Preferences, &g.Preferences); err != nil {
			return nil, fmt.Errorf("%w: viewer group %q preferences: %v", ErrInvalidData, r.Name, err)
		}
		if err := decodeJSON(r.PopularitySpillover, &g.PopularitySpillover); err != nil {
			return nil, fmt.Errorf("%w: viewer group %q spillover: %v", ErrInvalidData, r.Name, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// PutViewerGroup inserts or replaces a viewer group.
func (s *SQLiteStore) PutViewerGroup(ctx context.Context, g model.ViewerGroup) error {
	return putViewerGroup(ctx, s.conn, g)
}

func putViewerGroup(ctx context.Context, ex execer, g model.ViewerGroup) error {
	prefs, err := encodeJSON(g.Preferences)
	if err != nil {
		return err
	}
	spill, err := encodeJSON(g.PopularitySpillover)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `INSERT OR REPLACE INTO viewer_groups
		(name, inherits_from, market_share_percent, spending_power, focus_bonus, preferences_json, popularity_spillover_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.Name, g.InheritsFrom, g.MarketSharePercent, g.SpendingPower, g.FocusBonus, prefs, spill)
	if err != nil {
		return fmt.Errorf("put viewer group %q: %w", g.Name, err)
	}
	return nil
}

type tierRow struct {
	Category       string   `db:"category"`
	TierName       string   `db:"tier_name"`
	CostPerScene   float64  `db:"cost_per_scene"`
	CostMultiplier *float64 `db:"cost_multiplier"`
	IsLowTier      bool     `db:"is_low_tier"`
}

// ProductionSettings loads the tiers grouped by category, cheapest first.
func (s *SQLiteStore) ProductionSettings(ctx context.Context) (map[string][]model.ProductionTier, error) {
	var rows []tierRow
	if err := s.conn.SelectContext(ctx, &rows, `SELECT category, tier_name, cost_per_scene, cost_multiplier, is_low_tier
		FROM production_settings_definitions ORDER BY category, cost_per_scene, cost_multiplier`); err != nil {
		metrics.RecordErrorByComponent("repository", "query")
		return nil, fmt.Errorf("select production_settings_definitions: %w", err)
	}
	out := make(map[string][]model.ProductionTier)
	for _, r := range rows {
		out[r.Category] = append(out[r.Category], model.ProductionTier{
			TierName:       r.TierName,
			CostPerScene:   r.CostPerScene,
			CostMultiplier: r.CostMultiplier,
			IsLowTier:      r.IsLowTier,
		})
	}
	return out, nil
}

// PutProductionTier inserts or replaces a tier of category.
func (s *SQLiteStore) PutProductionTier(ctx context.Context, category string, t model.ProductionTier) error {
	return putProductionTier(ctx, s.conn, category, t)
}

func putProductionTier(ctx context.Context, ex execer, category string, t model.ProductionTier) error {
	_, err := ex.ExecContext(ctx, `INSERT OR REPLACE INTO production_settings_definitions
		(category, tier_name, cost_per_scene, cost_multiplier, is_low_tier) VALUES (?, ?, ?, ?, ?)`,
		category, t.TierName, t.CostPerScene, t.CostMultiplier, t.IsLowTier)
	if err != nil {
		return fmt.Errorf("put production tier %s/%s: %w", category, t.TierName, err)
	}
	return nil
}

type policyRow struct {
	ID          string  `db:"id"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	CostPerBloc float64 `db:"cost_per_bloc"`
}

// OnSetPolicies loads the policies keyed by id.
func (s *SQLiteStore) OnSetPolicies(ctx context.Context) (map[string]model.OnSetPolicy, error) {
	var rows []policyRow
	if err := s.conn.SelectContext(ctx, &rows, `SELECT id, name, description, cost_per_bloc
		FROM on_set_policies_definitions ORDER BY name`); err != nil {
		metrics.RecordErrorByComponent("repository", "query")
		return nil, fmt.Errorf("select on_set_policies_definitions: %w", err)
	}
	out := make(map[string]model.OnSetPolicy, len(rows))
	for _, r := range rows {
		out[r.ID] = model.OnSetPolicy{ID: r.ID, Name: r.Name, Description: r.Description, CostPerBloc: r.CostPerBloc}
	}
	return out, nil
}

// PutOnSetPolicy inserts or replaces a policy.
func (s *SQLiteStore) PutOnSetPolicy(ctx context.Context, p model.OnSetPolicy) error {
	return putOnSetPolicy(ctx, s.conn, p)
}

func putOnSetPolicy(ctx context.Context, ex execer, p model.OnSetPolicy) error {
	_, err := ex.ExecContext(ctx, `INSERT OR REPLACE INTO on_set_policies_definitions
		(id, name, description, cost_per_bloc) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.CostPerBloc)
	if err != nil {
		return fmt.Errorf("put policy %q: %w", p.ID, err)
	}
	return nil
}

// PutGameConfig stores value JSON-encoded under key.
func (s *SQLiteStore) PutGameConfig(ctx context.Context, key string, value any) error {
	return putGameConfig(ctx, s.conn, key, value)
}

func putGameConfig(ctx context.Context, ex execer, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: game config %q: %v", ErrInvalidData, key, err)
	}
	if _, err := ex.ExecContext(ctx, `INSERT OR REPLACE INTO game_config (key, value) VALUES (?, ?)`,
		key, string(raw)); err != nil {
		return fmt.Errorf("put game config %q: %w", key, err)
	}
	return nil
}

// GameConfigValue returns the raw stored value of key.
func (s *SQLiteStore) GameConfigValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.GetContext(ctx, &value, `SELECT value FROM game_config WHERE key = ?`, key)
	if err != nil {
		return "", fmt.Errorf("%w: game config %q: %v", ErrNotFound, key, err)
	}
	return value, nil
}

type configRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// GameConfig returns every game_config entry decoded. Values are parsed as
// JSON first, then as a number, and are kept as strings otherwise.
func (s *SQLiteStore) GameConfig(ctx context.Context) (map[string]any, error) {
	start := time.Now()
	var rows []configRow
	if err := s.conn.SelectContext(ctx, &rows, `SELECT key, value FROM game_config`); err != nil {
		metrics.RecordErrorByComponent("repository", "query")
		return nil, fmt.Errorf("select game_config: %w", err)
	}
	out := make(map[string]any, len(rows))
	for _, r := range rows {
		out[r.Key] = decodeConfigValue(r.Value)
	}
	s.log.Debug(ctx, "game config loaded",
		logger.Int("keys", len(out)),
		logger.Duration("took", time.Since(start)))
	return out, nil
}
