package production_test

import (
	"testing"

	"github.com/okian/scenecalc/internal/domain/model"
	"github.com/okian/scenecalc/internal/domain/production"
	. "github.com/smartystreets/goconvey/convey"
)

func f(v float64) *float64 { return &v }

func calculator() *production.Calculator {
	return production.NewCalculator(
		map[string][]model.ProductionTier{
			production.CategoryCameraEquipment: {
				{TierName: "Basic", CostPerScene: 100},
				{TierName: "Cinema", CostPerScene: 400},
			},
			production.CategoryCameraSetup: {
				{TierName: "Single", CostMultiplier: f(1)},
				{TierName: "Multi", CostMultiplier: f(1.5)},
				{TierName: "Default"},
			},
			"Lighting": {
				{TierName: "Natural", CostPerScene: 0, IsLowTier: true},
				{TierName: "Studio", CostPerScene: 150},
			},
		},
		map[string]model.OnSetPolicy{
			"catering": {ID: "catering", Name: "Catering", CostPerBloc: 250},
			"testing":  {ID: "testing", Name: "STI Testing", CostPerBloc: 500},
		},
	)
}

func TestShootingBlocCost(t *testing.T) {
	Convey("Given a bloc cost calculator", t, func() {
		calc := calculator()

		Convey("When camera equipment is combined with a multi-camera setup", func() {
			settings := map[string]string{
				"Camera Equipment": "Cinema",
				"Camera Setup":     "Multi",
				"Lighting":         "Studio",
			}

			Convey("Then the equipment cost should be multiplied", func() {
				So(calc.PerSceneCost(settings), ShouldEqual, 400*1.5+150)
			})

			Convey("And the bloc should add policy costs once", func() {
				So(calc.ShootingBlocCost(3, settings, []string{"catering", "testing"}), ShouldEqual, 3*750+750)
			})
		})

		Convey("When the setup tier has no multiplier", func() {
			settings := map[string]string{
				"Camera Equipment": "Basic",
				"Camera Setup":     "Default",
			}

			Convey("Then the multiplier should default to one", func() {
				So(calc.PerSceneCost(settings), ShouldEqual, 100)
			})
		})

		Convey("When tiers or policies are unknown", func() {
			settings := map[string]string{
				"Camera Equipment": "Imaginary",
				"Wardrobe":         "Haute",
			}

			Convey("Then they should cost nothing", func() {
				So(calc.ShootingBlocCost(4, settings, []string{"ghost"}), ShouldEqual, 0)
			})
		})

		Convey("When only a setup multiplier is selected", func() {
			settings := map[string]string{production.CategoryCameraSetup: "Multi"}

			Convey("Then no camera cost should apply", func() {
				So(calc.ShootingBlocCost(2, settings, nil), ShouldEqual, 0)
			})
		})

		Convey("When fractional costs are involved", func() {
			c := production.NewCalculator(map[string][]model.ProductionTier{
				"Lighting": {{TierName: "Odd", CostPerScene: 10.75}},
			}, nil)

			Convey("Then the total should be truncated", func() {
				So(c.ShootingBlocCost(2, map[string]string{"Lighting": "Odd"}, nil), ShouldEqual, 21)
			})
		})

		Convey("When looking up tiers", func() {
			tier, ok := calc.Tier("Lighting", "Natural")

			Convey("Then the stored tier should be returned", func() {
				So(ok, ShouldBeTrue)
				So(tier.IsLowTier, ShouldBeTrue)
			})
		})
	})
}
