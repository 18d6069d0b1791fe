package catalog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/score"
)

var _ = Describe("BuildView", func() {
	palette := score.Palette{
		"5":  {Light: "#F6E05E", Dark: "#D69E2E", Name: "yellow"},
		"10": {Light: "#805AD5", Dark: "#553C9A", Name: "purple"},
	}

	items := []catalog.Item{
		{ID: 1, Title: "Iron Man", Year: 2008, Kind: catalog.Film, Phase: 1, PhaseOrder: 1},
		{ID: 2, Title: "Loki", Year: 2021, Kind: catalog.Show, Phase: 4, PhaseOrder: 2, ShowKey: "loki", SeasonNumber: 1},
		{ID: 3, Title: "Loki", Year: 2023, Kind: catalog.Show, Phase: 5, PhaseOrder: 1, ShowKey: "loki", SeasonNumber: 2},
		{ID: 4, Title: "Echo", Year: 2024, Kind: catalog.Show, Phase: 4, PhaseOrder: 1, ShowKey: "echo", SeasonNumber: 1},
		{ID: 5, Title: "The Incredible Hulk", Year: 2008, Kind: catalog.Film, Phase: 1, PhaseOrder: 0},
	}

	It("groups by ascending phase and sorts each group by phase order", func() {
		v := catalog.BuildView(items, catalog.Scores{}, palette, catalog.ViewOptions{})
		var phases []int
		for _, g := range v.Phases {
			phases = append(phases, g.Phase)
		}
		Expect(phases).To(Equal([]int{1, 4, 5}))
		Expect(v.Phases[0].Entries[0].Title).To(Equal("The Incredible Hulk"))
		Expect(v.Phases[1].Entries[0].Title).To(Equal("Echo"))
		Expect(v.Len()).To(Equal(5))
	})

	It("adds the season suffix only for multi-season shows", func() {
		v := catalog.BuildView(items, catalog.Scores{}, palette, catalog.ViewOptions{})
		echo, ok := v.Find(4, catalog.Show)
		Expect(ok).To(BeTrue())
		Expect(echo.Label).To(Equal("Echo"))

		loki, ok := v.Find(3, catalog.Show)
		Expect(ok).To(BeTrue())
		Expect(loki.Label).To(Equal("Loki (S2)"))
		Expect(loki.Link).To(Equal("/title/3?kind=show"))
	})

	It("defaults every missing score to 5 and colors it", func() {
		v := catalog.BuildView(items, catalog.Scores{}, palette, catalog.ViewOptions{Theme: score.Dark})
		e, ok := v.Find(1, catalog.Film)
		Expect(ok).To(BeTrue())
		Expect(e.Score).To(Equal("5"))
		Expect(e.Base).To(Equal("5"))
		Expect(e.Modifier).To(BeEmpty())
		Expect(e.Background).To(Equal("#D69E2E"))
		Expect(e.Text).To(Equal("#1A202C"))
		Expect(e.CanModify).To(BeTrue())
		Expect(e.Solid).To(BeFalse())
	})

	It("filters to a single year", func() {
		v := catalog.BuildView(items, catalog.Scores{}, palette, catalog.ViewOptions{Year: "2008"})
		Expect(v.Phases).To(HaveLen(1))
		Expect(v.Len()).To(Equal(2))
		Expect(v.Year).To(Equal("2008"))
	})

	It("replaces an entry in place", func() {
		v := catalog.BuildView(items, catalog.Scores{}, palette, catalog.ViewOptions{})
		e := catalog.NewEntry(items[0], "10", palette, score.Light, false)
		Expect(v.Replace(e)).To(BeTrue())
		got, _ := v.Find(1, catalog.Film)
		Expect(got.Score).To(Equal("10"))
		Expect(got.Solid).To(BeTrue())
		Expect(got.CanModify).To(BeFalse())
	})

	It("repairs malformed stored tokens", func() {
		e := catalog.NewEntry(items[0], "banana", palette, score.Light, false)
		Expect(e.Score).To(Equal("5"))
	})
})

var _ = Describe("ValidateYear", func() {
	DescribeTable("bounds",
		func(in string, ok bool) {
			_, err := catalog.ValidateYear(in)
			if ok {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(catalog.IsValidation(err)).To(BeTrue())
			}
		},
		Entry("1899", "1899", false),
		Entry("3001", "3001", false),
		Entry("1900", "1900", true),
		Entry("3000", "3000", true),
		Entry("non-numeric", "20x8", false),
		Entry("empty", "", false),
	)
})
