package repository

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/pkg/metrics"
)

// StaticData is the complete static data set held in memory by the service.
type StaticData struct {
	Catalog            *model.Catalog
	ViewerGroups       []model.ViewerGroup
	ProductionSettings map[string][]model.ProductionTier
	OnSetPolicies      map[string]model.OnSetPolicy
}

// LoadAll reads every static table from r concurrently. The first failure
// cancels the remaining reads.
func LoadAll(ctx context.Context, r Reader) (*StaticData, error) {
	start := time.Now()
	var data StaticData

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		c, err := r.TagDefinitions(egCtx)
		if err != nil {
			return fmt.Errorf("load tags: %w", err)
		}
		data.Catalog = c
		return nil
	})
	eg.Go(func() error {
		g, err := r.ViewerGroups(egCtx)
		if err != nil {
			return fmt.Errorf("load viewer groups: %w", err)
		}
		data.ViewerGroups = g
		return nil
	})
	eg.Go(func() error {
		ps, err := r.ProductionSettings(egCtx)
		if err != nil {
			return fmt.Errorf("load production settings: %w", err)
		}
		data.ProductionSettings = ps
		return nil
	})
	eg.Go(func() error {
		p, err := r.OnSetPolicies(egCtx)
		if err != nil {
			return fmt.Errorf("load on-set policies: %w", err)
		}
		data.OnSetPolicies = p
		return nil
	})
	if err := eg.Wait(); err != nil {
		metrics.RecordErrorByComponent("repository", "load")
		return nil, err
	}

	tiers := 0
	for _, ts := range data.ProductionSettings {
		tiers += len(ts)
	}
	metrics.UpdateCatalogEntries("scene_tags", data.Catalog.Len())
	metrics.UpdateCatalogEntries("viewer_groups", len(data.ViewerGroups))
	metrics.UpdateCatalogEntries("production_settings", tiers)
	metrics.UpdateCatalogEntries("on_set_policies", len(data.OnSetPolicies))
	metrics.RecordCatalogLoadDuration(time.Since(start))
	return &data, nil
}
