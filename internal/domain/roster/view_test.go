package roster_test

import (
	"errors"
	"testing"

	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/roster"
	"github.com/okian/fitscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func candidate(id string, score int) model.Candidate {
	return model.Candidate{
		ID:             id,
		Name:           "c-" + id,
		Email:          id + "@example.com",
		FitScore:       score,
		Classification: scoring.Classify(score),
	}
}

func TestFilter(t *testing.T) {
	Convey("Given a snapshot with mixed classifications", t, func() {
		snap := []model.Candidate{
			candidate("a", 90),
			candidate("b", 65),
			candidate("c", 85),
			candidate("d", 10),
		}

		Convey("When filtering by all", func() {
			got := roster.Filter(snap, roster.FilterAll)

			Convey("Then the snapshot comes back unchanged", func() {
				So(got, ShouldResemble, snap)
			})
		})

		Convey("When filtering by a label", func() {
			got := roster.Filter(snap, string(scoring.FitAltissimo))

			Convey("Then exactly the matching subset is returned", func() {
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "a")
				So(got[1].ID, ShouldEqual, "c")
			})

			Convey("Then filtering the result again changes nothing", func() {
				So(roster.Filter(got, string(scoring.FitAltissimo)), ShouldResemble, got)
			})
		})

		Convey("When filtering by a label nobody has", func() {
			got := roster.Filter(snap, string(scoring.FitQuestionavel))

			Convey("Then the result is empty", func() {
				So(got, ShouldBeEmpty)
			})
		})

		Convey("Then distinct labels follow first-seen order", func() {
			So(roster.DistinctLabels(snap), ShouldResemble, []string{
				string(scoring.FitAltissimo),
				string(scoring.FitAprovado),
				string(scoring.ForaDoPerfil),
			})
		})
	})
}

func TestViewStates(t *testing.T) {
	Convey("Given a fresh view", t, func() {
		v := roster.New()

		Convey("Then it is loading with the identity filter", func() {
			So(v.State(), ShouldEqual, roster.Loading)
			So(v.Render().Filter, ShouldEqual, roster.FilterAll)
		})

		Convey("When an empty snapshot arrives", func() {
			v.Apply(nil)

			Convey("Then it is empty", func() {
				So(v.State(), ShouldEqual, roster.Empty)
				So(v.Options(), ShouldBeEmpty)
			})
		})

		Convey("When a populated snapshot arrives", func() {
			v.Apply([]model.Candidate{candidate("a", 90)})

			Convey("Then it is populated", func() {
				So(v.State(), ShouldEqual, roster.Populated)
			})

			Convey("And the filter excludes every record", func() {
				v.SetFilter(string(scoring.ForaDoPerfil))

				Convey("Then it is empty although the raw snapshot is not", func() {
					So(v.State(), ShouldEqual, roster.Empty)
					So(v.Render().Total, ShouldEqual, 1)
					So(v.Options(), ShouldResemble, []string{string(scoring.FitAltissimo)})
				})
			})

			Convey("And a new label shows up in the next snapshot", func() {
				v.Apply([]model.Candidate{candidate("a", 90), candidate("b", 20)})

				Convey("Then it becomes selectable", func() {
					So(v.Options(), ShouldContain, string(scoring.ForaDoPerfil))
					v.SetFilter(string(scoring.ForaDoPerfil))
					So(v.State(), ShouldEqual, roster.Populated)
					So(len(v.Visible()), ShouldEqual, 1)
				})
			})
		})

		Convey("When the subscription fails", func() {
			v.Apply([]model.Candidate{candidate("a", 90)})
			v.Fail(errors.New("stream closed"))

			Convey("Then the error state is terminal", func() {
				v.Apply([]model.Candidate{candidate("b", 50)})
				v.SetFilter(roster.FilterAll)
				So(v.State(), ShouldEqual, roster.Error)

				f := v.Render()
				So(f.Status, ShouldEqual, roster.Error)
				So(f.Error, ShouldEqual, "stream closed")
				So(f.Candidates, ShouldBeEmpty)
			})
		})

		Convey("When the filter is set before the first snapshot", func() {
			v.SetFilter(string(scoring.FitAprovado))

			Convey("Then the view keeps loading", func() {
				So(v.State(), ShouldEqual, roster.Loading)
			})
		})
	})
}

func TestRenderBadges(t *testing.T) {
	Convey("Given stored records", t, func() {
		old := model.Candidate{ID: "x", FitScore: 95, Classification: "Fit Legado"}
		v := roster.New()
		v.Apply([]model.Candidate{candidate("a", 62), old})

		Convey("Then badges come from the stored label", func() {
			rows := v.Render().Candidates
			So(len(rows), ShouldEqual, 2)
			So(rows[0].Color, ShouldEqual, scoring.Blue)
			So(rows[0].Badge, ShouldEqual, "bg-blue-500")
			So(rows[1].Classification, ShouldEqual, scoring.Label("Fit Legado"))
			So(rows[1].Color, ShouldEqual, scoring.Gray)
		})
	})
}
