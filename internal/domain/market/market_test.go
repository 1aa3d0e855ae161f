package market_test

import (
	"testing"

	"github.com/okian/scenecalc/internal/domain/market"
	"github.com/okian/scenecalc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }

func TestResolver(t *testing.T) {
	Convey("Given a three-level inheritance chain", t, func() {
		groups := []model.ViewerGroup{
			{
				Name:          "Enthusiast",
				InheritsFrom:  "Adult",
				SpendingPower: f(2.5),
				Preferences:   map[string]map[string]float64{"scene_tags": {"Anal": 1.4}},
			},
			{
				Name:                "General",
				MarketSharePercent:  f(40),
				SpendingPower:       f(1),
				FocusBonus:          f(1.1),
				Preferences:         map[string]map[string]float64{"scene_tags": {"Kissing": 1.2, "Anal": 0.8}},
				PopularitySpillover: map[string]float64{"Adult": 0.1},
			},
			{
				Name:                "Adult",
				InheritsFrom:        "General",
				MarketSharePercent:  f(20),
				Preferences:         map[string]map[string]float64{"orientation": {"Straight": 1.1}},
				PopularitySpillover: map[string]float64{"Enthusiast": 0.3},
			},
		}

		Convey("When the resolver is built", func() {
			r, err := market.NewResolver(groups)
			So(err, ShouldBeNil)

			Convey("Then child scalars should override the parent", func() {
				g, ok := r.Group("Enthusiast")
				So(ok, ShouldBeTrue)
				So(*g.SpendingPower, ShouldEqual, 2.5)
				So(*g.MarketSharePercent, ShouldEqual, 20)
				So(*g.FocusBonus, ShouldEqual, 1.1)
			})

			Convey("And preferences should merge per item", func() {
				g, _ := r.Group("Enthusiast")
				So(g.Preferences["scene_tags"], ShouldResemble, map[string]float64{"Kissing": 1.2, "Anal": 1.4})
				So(g.Preferences["orientation"], ShouldResemble, map[string]float64{"Straight": 1.1})
			})

			Convey("And spillover should merge", func() {
				g, _ := r.Group("Adult")
				So(g.PopularitySpillover, ShouldResemble, map[string]float64{"Adult": 0.1, "Enthusiast": 0.3})
			})

			Convey("And parents should stay unchanged", func() {
				g, _ := r.Group("General")
				So(g.Preferences["scene_tags"]["Anal"], ShouldEqual, 0.8)
				So(g.Preferences, ShouldNotContainKey, "orientation")
			})

			Convey("And returned groups should be copies", func() {
				g, _ := r.Group("General")
				*g.SpendingPower = 99
				again, _ := r.Group("General")
				So(*again.SpendingPower, ShouldEqual, 1)
				So(r.Groups(), ShouldHaveLength, 3)
				So(r.Names(), ShouldResemble, []string{"Adult", "Enthusiast", "General"})
			})

			Convey("And unknown groups should be absent", func() {
				_, ok := r.Group("Nobody")
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given groups that inherit from each other", t, func() {
		_, err := market.NewResolver([]model.ViewerGroup{
			{Name: "A", InheritsFrom: "B"},
			{Name: "B", InheritsFrom: "C"},
			{Name: "C", InheritsFrom: "A"},
		})

		Convey("Then construction should fail", func() {
			So(err, ShouldWrap, market.ErrCircularInheritance)
			So(err.Error(), ShouldContainSubstring, "A -> B -> C -> A")
		})
	})

	Convey("Given a group that inherits from itself", t, func() {
		_, err := market.NewResolver([]model.ViewerGroup{{Name: "A", InheritsFrom: "A"}})
		So(err, ShouldWrap, market.ErrCircularInheritance)
	})

	Convey("Given a group with a missing parent", t, func() {
		_, err := market.NewResolver([]model.ViewerGroup{{Name: "A", InheritsFrom: "Ghost"}})
		So(err, ShouldWrap, market.ErrUnknownParent)
	})

	Convey("Given duplicate group names", t, func() {
		_, err := market.NewResolver([]model.ViewerGroup{{Name: "A"}, {Name: "A"}})
		So(err, ShouldWrap, market.ErrDuplicateGroup)
	})
}

func TestRecoverSaturation(t *testing.T) {
	Convey("Given partially saturated groups", t, func() {
		current := map[string]float64{"General": 0.5, "Adult": 1.0}

		Convey("When recovering at 10%", func() {
			next, changed := market.RecoverSaturation(0.1, current)

			Convey("Then deficits should shrink by the rate", func() {
				So(changed, ShouldBeTrue)
				So(next["General"], ShouldAlmostEqual, 0.55, 1e-9)
				So(next["Adult"], ShouldEqual, 1.0)
			})

			Convey("And the input should not be modified", func() {
				So(current["General"], ShouldEqual, 0.5)
			})
		})

		Convey("When the rate overshoots", func() {
			next, _ := market.RecoverSaturation(3, current)

			Convey("Then saturation should be capped at one", func() {
				So(next["General"], ShouldEqual, 1.0)
			})
		})
	})

	Convey("Given fully recovered groups", t, func() {
		_, changed := market.RecoverSaturation(0.1, map[string]float64{"General": 1.0})
		So(changed, ShouldBeFalse)
	})
}
