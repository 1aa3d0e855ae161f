package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/okian/scenecalc/internal/domain/model"
)

// CatalogFile is the YAML layout of a static data file.
type CatalogFile struct {
	Tags               []model.TagDefinition             `yaml:"tags"`
	ViewerGroups       []model.ViewerGroup               `yaml:"viewer_groups"`
	ProductionSettings map[string][]model.ProductionTier `yaml:"production_settings"`
	OnSetPolicies      []model.OnSetPolicy               `yaml:"on_set_policies"`
	GameConfig         map[string]any                    `yaml:"game_config"`
}

// LoadCatalogFile reads and validates a YAML catalog from path.
func LoadCatalogFile(path string) (*CatalogFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %q: %w", path, err)
	}
	defer f.Close()

	cf, err := DecodeCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %q: %w", path, err)
	}
	return cf, nil
}

// DecodeCatalog decodes a YAML catalog from r. Unknown keys are rejected.
func DecodeCatalog(r io.Reader) (*CatalogFile, error) {
	var cf CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidData, err)
	}
	if err := cf.Validate(); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Validate checks that every entry carries its identifying fields, that
// expansion rules name a child tag and that no tag or policy is defined twice.
func (cf *CatalogFile) Validate() error {
	var errs []error
	seenTags := make(map[string]bool, len(cf.Tags))
	for i, t := range cf.Tags {
		if t.Name == "" || t.Type == "" {
			errs = append(errs, fmt.Errorf("tags[%d]: name and type are required", i))
			continue
		}
		full := model.FullTagName(t.Name, t.Orientation)
		if seenTags[full] {
			errs = append(errs, fmt.Errorf("tags[%d]: duplicate tag %q", i, full))
		}
		seenTags[full] = true
		for j, rule := range t.ExpandsTo {
			if rule.TagName == "" || rule.RuntimeRatio < 0 {
				errs = append(errs, fmt.Errorf("tags[%d].expands_to[%d]: tag_name and a non-negative runtime_ratio are required", i, j))
			}
		}
	}
	for i, g := range cf.ViewerGroups {
		if g.Name == "" {
			errs = append(errs, fmt.Errorf("viewer_groups[%d]: name is required", i))
		}
	}
	for category, tiers := range cf.ProductionSettings {
		for i, t := range tiers {
			if t.TierName == "" {
				errs = append(errs, fmt.Errorf("production_settings[%s][%d]: tier_name is required", category, i))
			}
		}
	}
	seenPolicies := make(map[string]bool, len(cf.OnSetPolicies))
	for i, p := range cf.OnSetPolicies {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("on_set_policies[%d]: id is required", i))
			continue
		}
		if seenPolicies[p.ID] {
			errs = append(errs, fmt.Errorf("on_set_policies[%d]: duplicate id %q", i, p.ID))
		}
		seenPolicies[p.ID] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidData, errors.Join(errs...))
	}
	return nil
}

// FileStore serves static data from a decoded YAML catalog.
type FileStore struct {
	file *CatalogFile
}

// NewFileStore wraps cf as a Reader.
func NewFileStore(cf *CatalogFile) *FileStore {
	return &FileStore{file: cf}
}

// TagDefinitions returns the tags in file order.
func (s *FileStore) TagDefinitions(_ context.Context) (*model.Catalog, error) {
	c := model.NewCatalog()
	for _, t := range s.file.Tags {
		c.Set(model.FullTagName(t.Name, t.Orientation), t.Clone())
	}
	return c, nil
}

// ViewerGroups returns copies of the file's viewer groups.
func (s *FileStore) ViewerGroups(_ context.Context) ([]model.ViewerGroup, error) {
	out := make([]model.ViewerGroup, len(s.file.ViewerGroups))
	for i, g := range s.file.ViewerGroups {
		out[i] = g.Clone()
	}
	return out, nil
}

// ProductionSettings returns the file's tiers per category.
func (s *FileStore) ProductionSettings(_ context.Context) (map[string][]model.ProductionTier, error) {
	out := make(map[string][]model.ProductionTier, len(s.file.ProductionSettings))
	for category, tiers := range s.file.ProductionSettings {
		out[category] = slices.Clone(tiers)
	}
	return out, nil
}

// OnSetPolicies returns the file's policies keyed by id.
func (s *FileStore) OnSetPolicies(_ context.Context) (map[string]model.OnSetPolicy, error) {
	out := make(map[string]model.OnSetPolicy, len(s.file.OnSetPolicies))
	for _, p := range s.file.OnSetPolicies {
		out[p.ID] = p
	}
	return out, nil
}

// ImportStats counts the entries written by Import.
type ImportStats struct {
	Tags         int
	ViewerGroups int
	Tiers        int
	Policies     int
	ConfigKeys   int
}

// Import writes every entry of cf to w. When w is a TxWriter the whole file
// is written in one transaction and a failure leaves the store unchanged;
// other writers may keep the entries written before the failure.
func Import(ctx context.Context, w Writer, cf *CatalogFile) (ImportStats, error) {
	tw, ok := w.(TxWriter)
	if !ok {
		return importAll(ctx, w, cf)
	}
	var st ImportStats
	err := tw.InTx(ctx, func(tx Writer) error {
		var err error
		st, err = importAll(ctx, tx, cf)
		return err
	})
	if err != nil {
		return ImportStats{}, err
	}
	return st, nil
}

func importAll(ctx context.Context, w Writer, cf *CatalogFile) (ImportStats, error) {
	var st ImportStats
	for _, t := range cf.Tags {
		if err := w.PutTag(ctx, t); err != nil {
			return st, err
		}
		st.Tags++
	}
	for _, g := range cf.ViewerGroups {
		if err := w.PutViewerGroup(ctx, g); err != nil {
			return st, err
		}
		st.ViewerGroups++
	}
	for category, tiers := range cf.ProductionSettings {
		for _, t := range tiers {
			if err := w.PutProductionTier(ctx, category, t); err != nil {
				return st, err
			}
			st.Tiers++
		}
	}
	for _, p := range cf.OnSetPolicies {
		if err := w.PutOnSetPolicy(ctx, p); err != nil {
			return st, err
		}
		st.Policies++
	}
	for key, value := range cf.GameConfig {
		if err := w.PutGameConfig(ctx, key, stringKeys(value)); err != nil {
			return st, err
		}
		st.ConfigKeys++
	}
	return st, nil
}

// stringKeys converts YAML mappings with non-string keys (such as integer
// levels) into JSON-encodable maps.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = stringKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stringKeys(val)
		}
		return out
	default:
		return v
	}
}
