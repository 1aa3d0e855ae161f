package repository_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/scenecalc/internal/adapters/repository"
	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	store, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "game_data.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func importFixture(t *testing.T, store *repository.SQLiteStore) repository.ImportStats {
	t.Helper()
	cf, err := repository.LoadCatalogFile(filepath.Join("testdata", "catalog.yaml"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	stats, err := repository.Import(context.Background(), store, cf)
	if err != nil {
		t.Fatalf("import catalog: %v", err)
	}
	return stats
}

func TestSQLiteStore(t *testing.T) {
	Convey("Given a store populated from the fixture catalog", t, func() {
		ctx := context.Background()
		store := openStore(t)
		stats := importFixture(t, store)

		Convey("Then the import should report every entry", func() {
			So(stats.Tags, ShouldEqual, 5)
			So(stats.ViewerGroups, ShouldEqual, 2)
			So(stats.Tiers, ShouldEqual, 6)
			So(stats.Policies, ShouldEqual, 2)
			So(stats.ConfigKeys, ShouldBeGreaterThan, 40)
		})

		Convey("When loading the tag catalog", func() {
			catalog, err := store.TagDefinitions(ctx)
			So(err, ShouldBeNil)

			Convey("Then keys should include the orientation in insertion order", func() {
				So(catalog.Keys(), ShouldResemble, []string{
					"Kissing", "Blowjob (Straight)", "DP (Straight)", "Office", "Tattoos",
				})
			})

			Convey("And string categories should be normalized to lists", func() {
				kissing, _ := catalog.Get("Kissing")
				So([]string(kissing.Categories), ShouldResemble, []string{"Foreplay"})
			})

			Convey("And slot modifiers should survive the round trip", func() {
				dp, _ := catalog.Get("DP (Straight)")
				receiver, ok := dp.Slot("Receiver")
				So(ok, ShouldBeTrue)
				So(receiver.Modifier("demand_modifier_scaling_per_other", 0), ShouldEqual, 0.5)
				So(*receiver.Count, ShouldEqual, 1)
				So(dp.Concept, ShouldEqual, "DP")
			})
		})

		Convey("When a tag is updated", func() {
			So(store.PutTag(ctx, model.TagDefinition{Name: "Kissing", Type: model.TagTypeAction, Concept: "Soft"}), ShouldBeNil)
			catalog, err := store.TagDefinitions(ctx)
			So(err, ShouldBeNil)

			Convey("Then it should keep its position", func() {
				So(catalog.Keys()[0], ShouldEqual, "Kissing")
				kissing, _ := catalog.Get("Kissing")
				So(kissing.Concept, ShouldEqual, "Soft")
				So(kissing.Categories, ShouldBeEmpty)
			})
		})

		Convey("When loading viewer groups", func() {
			groups, err := store.ViewerGroups(ctx)
			So(err, ShouldBeNil)

			Convey("Then nullable scalars should stay unset", func() {
				So(groups, ShouldHaveLength, 2)
				So(groups[0].Name, ShouldEqual, "Enthusiast")
				So(groups[0].MarketSharePercent, ShouldBeNil)
				So(*groups[0].SpendingPower, ShouldEqual, 2.0)
				So(groups[1].Preferences["scene_tags"]["Kissing"], ShouldEqual, 1.2)
			})
		})

		Convey("When loading production settings", func() {
			settings, err := store.ProductionSettings(ctx)
			So(err, ShouldBeNil)

			Convey("Then tiers should be grouped and ordered by cost", func() {
				So(settings, ShouldHaveLength, 3)
				So(settings["Camera Equipment"][0].TierName, ShouldEqual, "Basic")
				So(settings["Camera Equipment"][0].IsLowTier, ShouldBeTrue)
				So(settings["Camera Setup"][1].Multiplier(), ShouldEqual, 1.5)
				So(settings["Lighting"][1].CostMultiplier, ShouldBeNil)
			})
		})

		Convey("When loading policies", func() {
			policies, err := store.OnSetPolicies(ctx)
			So(err, ShouldBeNil)

			Convey("Then they should be keyed by id", func() {
				So(policies["sti_testing"].Name, ShouldEqual, "STI Testing")
				So(policies["catering"].Description, ShouldEqual, "Hot meals on set.")
			})
		})

		Convey("When the game config is read through koanf", func() {
			gc, err := config.LoadGame(ctx, store.GameConfigProvider(ctx), nil)

			Convey("Then every tunable should decode", func() {
				So(err, ShouldBeNil)
				So(gc.Hiring.BaseTalentDemand, ShouldEqual, 400)
				So(gc.Scene.SceneQualityDSWeights[2], ShouldEqual, 0.25)
				So(gc.Scene.AgeBasedAffinityRules, ShouldHaveLength, 2)
				So(gc.Scene.AgeBasedAffinityRules[0].Tag, ShouldEqual, "MILF")
			})
		})

		Convey("When a raw game config value is requested", func() {
			v, err := store.GameConfigValue(ctx, "base_talent_demand")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "400")

			_, err = store.GameConfigValue(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When everything is loaded at once", func() {
			data, err := repository.LoadAll(ctx, store)

			Convey("Then every table should be present", func() {
				So(err, ShouldBeNil)
				So(data.Catalog.Len(), ShouldEqual, 5)
				So(data.ViewerGroups, ShouldHaveLength, 2)
				So(data.ProductionSettings, ShouldHaveLength, 3)
				So(data.OnSetPolicies, ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given an empty dsn", t, func() {
		_, err := repository.Open(context.Background(), "")
		So(err, ShouldEqual, repository.ErrEmptyDSN)
	})
}

func TestGameConfigValues(t *testing.T) {
	Convey("Given values stored outside JSON", t, func() {
		ctx := context.Background()
		store := openStore(t)
		So(store.PutGameConfig(ctx, "list", []int{1, 2}), ShouldBeNil)
		So(store.PutGameConfig(ctx, "name", "studio"), ShouldBeNil)

		Convey("Then values should decode to their natural types", func() {
			values, err := store.GameConfig(ctx)
			So(err, ShouldBeNil)
			So(values["list"], ShouldResemble, []any{1.0, 2.0})
			So(values["name"], ShouldEqual, "studio")
		})
	})
}

func TestCatalogFile(t *testing.T) {
	Convey("Given the fixture catalog file", t, func() {
		cf, err := repository.LoadCatalogFile(filepath.Join("testdata", "catalog.yaml"))
		So(err, ShouldBeNil)

		Convey("When served through a file store", func() {
			data, err := repository.LoadAll(context.Background(), repository.NewFileStore(cf))
			So(err, ShouldBeNil)

			Convey("Then it should match the file contents", func() {
				So(data.Catalog.Keys()[1], ShouldEqual, "Blowjob (Straight)")
				So(data.OnSetPolicies["catering"].CostPerBloc, ShouldEqual, 250)
				So(data.ProductionSettings["Lighting"], ShouldHaveLength, 2)
			})
		})
	})

	Convey("Given a catalog with an unknown key", t, func() {
		_, err := repository.DecodeCatalog(strings.NewReader("tagz: []\n"))
		So(errors.Is(err, repository.ErrInvalidData), ShouldBeTrue)
	})

	Convey("Given a catalog with duplicate tags", t, func() {
		_, err := repository.DecodeCatalog(strings.NewReader(`
tags:
  - {name: Kissing, type: Action}
  - {name: Kissing, type: Action}
`))
		So(errors.Is(err, repository.ErrInvalidData), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, `duplicate tag "Kissing"`)
	})

	Convey("Given a catalog entry without identity", t, func() {
		_, err := repository.DecodeCatalog(strings.NewReader(`
tags:
  - {type: Action}
on_set_policies:
  - {name: Nameless}
`))
		So(errors.Is(err, repository.ErrInvalidData), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "tags[0]")
		So(err.Error(), ShouldContainSubstring, "on_set_policies[0]")
	})

	Convey("Given an empty document", t, func() {
		cf, err := repository.DecodeCatalog(strings.NewReader(""))
		So(err, ShouldBeNil)
		So(cf.Tags, ShouldBeEmpty)
	})

	Convey("Given a missing file", t, func() {
		_, err := repository.LoadCatalogFile(filepath.Join("testdata", "missing.yaml"))
		So(err, ShouldNotBeNil)
	})
}

const compositeCatalog = `
tags:
  - name: Anal
    type: Action
    orientation: Straight
    slots:
      - {role: Top, count: 1}
      - {role: Receiver, count: 1, demand_modifier: 2}
  - name: DP
    type: Action
    orientation: Straight
    expands_to:
      - tag_name: Anal (Straight)
        runtime_ratio: 1
        role_map: {Giver: Top}
        parameters: {Top: 1}
`

func TestCompositeTags(t *testing.T) {
	Convey("Given a catalog with an expanding tag", t, func() {
		ctx := context.Background()
		cf, err := repository.DecodeCatalog(strings.NewReader(compositeCatalog))
		So(err, ShouldBeNil)

		Convey("Then the expansion rules should decode", func() {
			dp := cf.Tags[1]
			So(dp.ExpandsTo, ShouldHaveLength, 1)
			So(dp.ExpandsTo[0].TagName, ShouldEqual, "Anal (Straight)")
			So(dp.ExpandsTo[0].RuntimeRatio, ShouldEqual, 1)
			So(dp.ExpandsTo[0].MapRole("Giver"), ShouldEqual, "Top")
			So(dp.ExpandsTo[0].Parameters, ShouldResemble, map[string]int{"Top": 1})
		})

		Convey("Then a rule without a child tag should be rejected", func() {
			_, err := repository.DecodeCatalog(strings.NewReader(`
tags:
  - name: DP
    type: Action
    expands_to:
      - {runtime_ratio: 1}
`))
			So(errors.Is(err, repository.ErrInvalidData), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "tags[0].expands_to[0]")
		})

		Convey("When imported into SQLite", func() {
			store := openStore(t)
			_, err := repository.Import(ctx, store, cf)
			So(err, ShouldBeNil)
			catalog, err := store.TagDefinitions(ctx)
			So(err, ShouldBeNil)

			Convey("Then the rules should survive the round trip", func() {
				dp, ok := catalog.Get("DP (Straight)")
				So(ok, ShouldBeTrue)
				So(dp.ExpandsTo, ShouldResemble, cf.Tags[1].ExpandsTo)
				anal, _ := catalog.Get("Anal (Straight)")
				So(anal.ExpandsTo, ShouldBeNil)
			})
		})
	})
}

func TestImportAtomicity(t *testing.T) {
	Convey("Given a catalog whose last entry cannot be stored", t, func() {
		ctx := context.Background()
		store := openStore(t)
		cf := &repository.CatalogFile{
			Tags:       []model.TagDefinition{{Name: "Kissing", Type: model.TagTypeAction}},
			GameConfig: map[string]any{"broken": make(chan int)},
		}

		Convey("When it is imported", func() {
			stats, err := repository.Import(ctx, store, cf)

			Convey("Then the error should be reported with empty stats", func() {
				So(errors.Is(err, repository.ErrInvalidData), ShouldBeTrue)
				So(stats, ShouldResemble, repository.ImportStats{})
			})

			Convey("And the tags written before the failure should be rolled back", func() {
				catalog, err := store.TagDefinitions(ctx)
				So(err, ShouldBeNil)
				So(catalog.Len(), ShouldEqual, 0)
			})
		})
	})
}
