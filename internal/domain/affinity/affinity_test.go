package affinity_test

import (
	"context"
	"testing"

	"github.com/okian/scenecalc/internal/config"
	"github.com/okian/scenecalc/internal/domain/affinity"
	"github.com/okian/scenecalc/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func calculator(rules ...config.AgeAffinityRule) *affinity.Calculator {
	return affinity.NewCalculator(config.SceneCalculationConfig{AgeBasedAffinityRules: rules})
}

func TestRecalculate(t *testing.T) {
	Convey("Given overlapping age rules for the same tag", t, func() {
		calc := calculator(
			config.AgeAffinityRule{Tag: "X", MinAge: 20, MaxAge: 40, AffinityScore: 5},
			config.AgeAffinityRule{Tag: "X", MinAge: 25, MaxAge: 35, AffinityScore: 9},
		)

		Convey("When a talent of age 30 is recalculated", func() {
			out := calc.Recalculate(model.Talent{Age: 30, TagAffinities: map[string]float64{"X": 1, "Y": 2}})

			Convey("Then the later rule should win", func() {
				So(out["X"], ShouldEqual, 9)
			})

			Convey("And unrelated tags should be kept", func() {
				So(out["Y"], ShouldEqual, 2)
			})
		})

		Convey("When only the wider bracket matches", func() {
			out := calc.Recalculate(model.Talent{Age: 22})

			Convey("Then its score should be applied to an empty map", func() {
				So(out, ShouldResemble, map[string]float64{"X": 5})
			})
		})

		Convey("When no bracket matches", func() {
			in := map[string]float64{"X": 3}
			out := calc.Recalculate(model.Talent{Age: 50, TagAffinities: in})

			Convey("Then the existing score should be untouched", func() {
				So(out, ShouldResemble, in)
			})
		})

		Convey("When the talent sits exactly on a bracket edge", func() {
			So(calc.Recalculate(model.Talent{Age: 40})["X"], ShouldEqual, 5)
			So(calc.Recalculate(model.Talent{Age: 35})["X"], ShouldEqual, 9)
		})
	})

	Convey("Given no rules", t, func() {
		calc := calculator()
		in := map[string]float64{"A": 1.5, "B": 4}
		talent := model.Talent{Age: 30, TagAffinities: in}

		Convey("When recalculating", func() {
			out := calc.Recalculate(talent)

			Convey("Then the result should equal the input but be a distinct map", func() {
				So(out, ShouldResemble, in)
				out["A"] = 99
				So(in["A"], ShouldEqual, 1.5)
			})
		})
	})

	Convey("Given a rule set whose source slice is later modified", t, func() {
		rules := []config.AgeAffinityRule{{Tag: "X", MinAge: 0, MaxAge: 99, AffinityScore: 1}}
		calc := affinity.NewCalculator(config.SceneCalculationConfig{AgeBasedAffinityRules: rules})
		rules[0].AffinityScore = 7

		Convey("Then the calculator should keep its own copy", func() {
			So(calc.Rules()[0].AffinityScore, ShouldEqual, 1)
			So(calc.Recalculate(model.Talent{Age: 10})["X"], ShouldEqual, 1)
		})
	})
}

func TestRecalculateRoster(t *testing.T) {
	Convey("Given a roster where only some talents cross a bracket", t, func() {
		calc := calculator(config.AgeAffinityRule{Tag: "Mature", MinAge: 35, MaxAge: 120, AffinityScore: 8})
		roster := []model.Talent{
			{ID: 1, Age: 34, TagAffinities: map[string]float64{"Mature": 0}},
			{ID: 2, Age: 35, TagAffinities: map[string]float64{"Mature": 0}},
			{ID: 3, Age: 50, TagAffinities: map[string]float64{"Mature": 8}},
		}

		Convey("When the roster is recalculated", func() {
			changed := calc.RecalculateRoster(context.Background(), roster)

			Convey("Then only the changed talent should be returned", func() {
				So(changed, ShouldHaveLength, 1)
				So(changed[2]["Mature"], ShouldEqual, 8)
			})

			Convey("And the input roster should not be mutated", func() {
				So(roster[1].TagAffinities["Mature"], ShouldEqual, 0)
			})
		})
	})
}
