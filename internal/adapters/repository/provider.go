package repository

import (
	"context"
	"errors"
)

// GameConfigProvider exposes the game_config table as a koanf provider.
type GameConfigProvider struct {
	ctx   context.Context //nolint:containedctx // koanf providers take no context
	store *SQLiteStore
}

// GameConfigProvider returns a koanf provider reading the game_config table
// under ctx.
func (s *SQLiteStore) GameConfigProvider(ctx context.Context) *GameConfigProvider {
	return &GameConfigProvider{ctx: ctx, store: s}
}

// ReadBytes is not supported; the provider returns decoded values.
func (p *GameConfigProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("repository: game config provider does not support ReadBytes")
}

// Read returns the decoded game_config entries.
func (p *GameConfigProvider) Read() (map[string]interface{}, error) {
	return p.store.GameConfig(p.ctx)
}
