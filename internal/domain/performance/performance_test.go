package performance_test

import (
	"testing"

	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/internal/domain/performance"
	"github.com/smartystreets/goconvey/convey"
)

func segment(params map[string]int, assignments ...model.SlotAssignment) model.ActionSegment {
	return model.ActionSegment{ID: 1, TagName: "Gangbang", RuntimePercentage: 50, Parameters: params, SlotAssignments: assignments}
}

func TestFinalModifier(t *testing.T) {
	convey.Convey("Given a slot with demand scaling coefficients", t, func() {
		svc := performance.NewService()
		slot := model.SlotDefinition{Role: "Receiver", Modifiers: map[string]float64{
			"demand_modifier":                   1.0,
			"demand_modifier_scaling_per_other": 0.5,
			"demand_modifier_scaling_per_peer":  0.2,
		}}

		convey.Convey("When three givers and two receivers take part", func() {
			got := svc.FinalModifier(performance.DemandModifier, slot, segment(map[string]int{"Giver": 3, "Receiver": 2}), "Receiver")

			convey.Convey("Then both bonuses should add to the base", func() {
				convey.So(got, convey.ShouldAlmostEqual, 2.2, 1e-9)
			})
		})

		convey.Convey("When only one participant of each role takes part", func() {
			got := svc.FinalModifier(performance.DemandModifier, slot, segment(map[string]int{"Giver": 1, "Receiver": 1}), "Receiver")

			convey.Convey("Then no bonus should apply", func() {
				convey.So(got, convey.ShouldEqual, 1.0)
			})
		})

		convey.Convey("When segment parameters are missing", func() {
			got := svc.FinalModifier(performance.DemandModifier, slot, segment(nil), "Giver")

			convey.Convey("Then counts should default to zero", func() {
				convey.So(got, convey.ShouldEqual, 1.0)
			})
		})
	})

	convey.Convey("Given a slot with negative coefficients", t, func() {
		svc := performance.NewService()
		slot := model.SlotDefinition{Modifiers: map[string]float64{
			"stamina_modifier":                   1.5,
			"stamina_modifier_scaling_per_other": -3,
			"stamina_modifier_scaling_per_peer":  -1,
		}}

		convey.Convey("Then the bonuses should be ignored", func() {
			got := svc.FinalModifier(performance.StaminaModifier, slot, segment(map[string]int{"Giver": 5, "Receiver": 5}), "Giver")
			convey.So(got, convey.ShouldEqual, 1.5)
		})
	})

	convey.Convey("Given a slot without any modifier keys", t, func() {
		svc := performance.NewService()

		convey.Convey("Then the base should default to one", func() {
			got := svc.FinalModifier(performance.DemandModifier, model.SlotDefinition{}, segment(map[string]int{"Giver": 4}), "Giver")
			convey.So(got, convey.ShouldEqual, 1.0)
		})
	})

	convey.Convey("Given a role without a complement", t, func() {
		svc := performance.NewService()
		slot := model.SlotDefinition{Modifiers: map[string]float64{
			"demand_modifier_scaling_per_other": 1,
			"demand_modifier_scaling_per_peer":  0.5,
		}}

		convey.Convey("Then only the peer bonus should apply", func() {
			got := svc.FinalModifier(performance.DemandModifier, slot, segment(map[string]int{"Giver": 4, "Performer": 3}), "Performer")
			convey.So(got, convey.ShouldEqual, 2.0)
		})
	})

	convey.Convey("Given a custom complement table", t, func() {
		svc := performance.NewService(performance.WithRoleComplements(map[string]string{"Top": "Bottom", "Bottom": "Top"}))
		slot := model.SlotDefinition{Modifiers: map[string]float64{"demand_modifier_scaling_per_other": 1}}

		convey.Convey("Then the configured opposite should drive the other count", func() {
			got := svc.FinalModifier(performance.DemandModifier, slot, segment(map[string]int{"Bottom": 3, "Receiver": 9}), "Top")
			convey.So(got, convey.ShouldEqual, 3.0)

			_, ok := svc.Complement("Giver")
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

func TestRoleModifiers(t *testing.T) {
	convey.Convey("Given a catalog with a two-role action tag", t, func() {
		svc := performance.NewService()
		catalog := model.NewCatalog()
		catalog.Set("Gangbang", model.TagDefinition{
			Name: "Gangbang",
			Type: model.TagTypeAction,
			Slots: []model.SlotDefinition{
				{Role: "Giver", Modifiers: map[string]float64{"demand_modifier": 1.2, "stamina_modifier": 1.1}},
				{Role: "Receiver", Modifiers: map[string]float64{
					"demand_modifier":                    2.0,
					"stamina_modifier":                   1.5,
					"stamina_modifier_scaling_per_other": 0.25,
				}},
			},
		})
		seg := segment(map[string]int{"Giver": 3, "Receiver": 1},
			model.SlotAssignment{SlotID: "Gangbang_Giver_1", VirtualPerformerID: 1},
			model.SlotAssignment{SlotID: "Gangbang_Receiver_1", VirtualPerformerID: 4},
		)

		convey.Convey("When resolving the receiver", func() {
			role, slot, ok := svc.RoleContext(seg, 4, catalog)

			convey.Convey("Then the slot and role should be found", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(role, convey.ShouldEqual, "Receiver")
				convey.So(slot.Role, convey.ShouldEqual, "Receiver")
			})

			convey.Convey("And the modifiers should use its slot", func() {
				convey.So(svc.RoleDemandModifier(seg, 4, catalog), convey.ShouldEqual, 2.0)
				convey.So(svc.RoleStaminaModifier(seg, 4, catalog), convey.ShouldEqual, 2.0)
			})
		})

		convey.Convey("When the performer is not assigned", func() {
			convey.So(svc.RoleDemandModifier(seg, 99, catalog), convey.ShouldEqual, 1.0)
		})

		convey.Convey("When the tag is missing from the catalog", func() {
			other := seg
			other.TagName = "Unknown"
			convey.So(svc.RoleStaminaModifier(other, 1, catalog), convey.ShouldEqual, 1.0)
		})

		convey.Convey("When the slot id cannot be parsed", func() {
			bad := segment(nil, model.SlotAssignment{SlotID: "broken", VirtualPerformerID: 7})
			convey.So(svc.RoleDemandModifier(bad, 7, catalog), convey.ShouldEqual, 1.0)
		})

		convey.Convey("When computing the stamina cost of a scene", func() {
			scene := model.Scene{RuntimeMinutes: 20, ActionSegments: []model.ActionSegment{seg, segment(nil)}}

			convey.Convey("Then only segments with the performer should count", func() {
				convey.So(svc.SceneStaminaCost(scene, 4, catalog), convey.ShouldAlmostEqual, 10*2.0, 1e-9)
				convey.So(svc.SceneStaminaCost(scene, 1, catalog), convey.ShouldAlmostEqual, 10*1.1, 1e-9)
			})
		})

		convey.Convey("When the performer is in a composite segment", func() {
			catalog.Set("Double Feature", model.TagDefinition{
				Name:      "Double Feature",
				Type:      model.TagTypeAction,
				ExpandsTo: []model.ExpansionRule{{TagName: "Gangbang", RuntimeRatio: 1}},
			})
			composite := model.ActionSegment{
				ID: 2, TagName: "Double Feature", RuntimePercentage: 50,
				Parameters:      map[string]int{"Giver": 3, "Receiver": 1},
				SlotAssignments: []model.SlotAssignment{{SlotID: "Double Feature_Receiver_1", VirtualPerformerID: 4}},
			}
			scene := model.Scene{RuntimeMinutes: 20, ActionSegments: []model.ActionSegment{composite}}

			convey.Convey("Then the child slot should drive the stamina cost", func() {
				convey.So(svc.SceneStaminaCost(scene, 4, catalog), convey.ShouldAlmostEqual, 10*2.0, 1e-9)
			})
		})
	})
}
