package handler_test

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddevcap/mcu-rankings/catalog"
	"github.com/ddevcap/mcu-rankings/store"
)

var _ = Describe("TitleHandler", func() {
	Describe("Get", func() {
		It("probes films first when no kind is given", func() {
			w := doGet(router, "/api/titles/1", bearer(guestToken()))
			Expect(w.Code).To(Equal(http.StatusOK))

			var d catalog.Detail
			decode(w, &d)
			Expect(d.Title).To(Equal("Iron Man"))
			Expect(d.Kind).To(Equal(catalog.Film))
			Expect(d.Score).To(Equal("7+"))
			Expect(d.Seasons).To(BeEmpty())
		})

		It("resolves a show with the kind hint and lists its seasons", func() {
			w := doGet(router, "/api/titles/2?kind=show", bearer(guestToken()))
			Expect(w.Code).To(Equal(http.StatusOK))

			var d catalog.Detail
			decode(w, &d)
			Expect(d.Label).To(Equal("Loki (S2)"))
			Expect(d.Score).To(Equal("5"))
			Expect(d.Seasons).To(HaveLen(2))
			Expect(d.Seasons[1].Current).To(BeTrue())
		})

		It("returns 404 for an unknown id", func() {
			w := doGet(router, "/api/titles/99", bearer(guestToken()))
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed id", func() {
			w := doGet(router, "/api/titles/abc", bearer(guestToken()))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PutScore", func() {
		It("returns 401 when unauthenticated", func() {
			w := doPut(router, "/api/titles/1/score", map[string]string{"score": "8"})
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("returns 403 for guests", func() {
			w := doPut(router, "/api/titles/1/score", map[string]string{"score": "8"}, bearer(guestToken()))
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(mem.CallsTo("upsert")).To(BeEmpty())
		})

		It("stores a whole token and returns the refreshed entry", func() {
			w := doPut(router, "/api/titles/1/score", map[string]string{"score": "8-"}, bearer(adminToken()))
			Expect(w.Code).To(Equal(http.StatusOK))

			var e catalog.Entry
			decode(w, &e)
			Expect(e.Score).To(Equal("8-"))
			Expect(e.Modifier).To(Equal("-"))
			Expect(scoreOf(store.MovieSpecialRankings, 1)).To(Equal("8-"))
		})

		It("writes to the show rankings with the kind hint and drops modifiers of terminal grades", func() {
			body := map[string]string{"kind": "show", "base": "10", "modifier": "+"}
			w := doPut(router, "/api/titles/1/score", body, bearer(adminToken()))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(scoreOf(store.ShowRankings, 1)).To(Equal("10"))
			Expect(scoreOf(store.MovieSpecialRankings, 1)).To(Equal("7+"))
		})

		It("keeps the current modifier when only the grade changes", func() {
			w := doPut(router, "/api/titles/1/score", map[string]string{"base": "9"}, bearer(adminToken()))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(scoreOf(store.MovieSpecialRankings, 1)).To(Equal("9+"))
		})

		It("is idempotent for the same payload", func() {
			token := adminToken()
			for range 2 {
				w := doPut(router, "/api/titles/2/score", map[string]string{"score": "7+"}, bearer(token))
				Expect(w.Code).To(Equal(http.StatusOK))
			}
			var rows []store.Row
			for _, r := range mem.Rows(store.MovieSpecialRankings) {
				if r.Int("item_id") == 2 {
					rows = append(rows, r)
				}
			}
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].String("score")).To(Equal("7+"))
		})

		It("rejects tokens outside the grammar before writing", func() {
			w := doPut(router, "/api/titles/1/score", map[string]string{"score": "12"}, bearer(adminToken()))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(mem.CallsTo("upsert")).To(BeEmpty())
		})

		It("surfaces the raw backend message when the write fails", func() {
			mem.FailOn("upsert", store.MovieSpecialRankings, errors.New("permission denied for table"))

			w := doPut(router, "/api/titles/1/score", map[string]string{"score": "8"}, bearer(adminToken()))
			Expect(w.Code).To(Equal(http.StatusBadGateway))

			var body map[string]string
			decode(w, &body)
			Expect(body["error"]).To(Equal("Failed to update score: permission denied for table"))
			Expect(scoreOf(store.MovieSpecialRankings, 1)).To(Equal("7+"))
		})
	})

	Describe("ToggleModifier", func() {
		It("cycles the modifier of the stored score", func() {
			token := adminToken()

			w := doPost(router, "/api/titles/2/score/toggle", nil, bearer(token))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(scoreOf(store.MovieSpecialRankings, 2)).To(Equal("5+"))

			doPost(router, "/api/titles/2/score/toggle", nil, bearer(token))
			Expect(scoreOf(store.MovieSpecialRankings, 2)).To(Equal("5-"))

			doPost(router, "/api/titles/2/score/toggle", nil, bearer(token))
			Expect(scoreOf(store.MovieSpecialRankings, 2)).To(Equal("5"))
		})

		It("does not write terminal grades", func() {
			w := doPost(router, "/api/titles/1/score/toggle?kind=show", nil, bearer(adminToken()))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(mem.CallsTo("upsert")).To(BeEmpty())
		})
	})

	Describe("Put", func() {
		DescribeTable("rejects years outside 1900..3000 without writing",
			func(year string) {
				body := map[string]string{"title": "Iron Man", "year": year, "base": "7", "modifier": "+"}
				w := doPut(router, "/api/titles/1", body, bearer(adminToken()))
				Expect(w.Code).To(Equal(http.StatusBadRequest))

				var resp map[string]string
				decode(w, &resp)
				Expect(resp["field"]).To(Equal("year"))
				Expect(mem.CallsTo("update")).To(BeEmpty())
				Expect(mem.CallsTo("upsert")).To(BeEmpty())
			},
			Entry("1899", "1899"),
			Entry("3001", "3001"),
			Entry("not a number", "2008a"),
		)

		It("updates title, year and score and returns the reloaded detail", func() {
			body := map[string]string{"title": "Iron Man (2008)", "year": "2009", "base": "8", "modifier": ""}
			w := doPut(router, "/api/titles/1", body, bearer(adminToken()))
			Expect(w.Code).To(Equal(http.StatusOK))

			var d catalog.Detail
			decode(w, &d)
			Expect(d.Title).To(Equal("Iron Man (2008)"))
			Expect(d.Year).To(Equal(2009))
			Expect(d.Score).To(Equal("8"))
			Expect(scoreOf(store.MovieSpecialRankings, 1)).To(Equal("8"))
		})

		It("edits the show table when the kind is show", func() {
			body := map[string]string{"kind": "show", "title": "Loki", "year": "2021", "base": "9", "modifier": "-"}
			w := doPut(router, "/api/titles/1", body, bearer(adminToken()))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(scoreOf(store.ShowRankings, 1)).To(Equal("9-"))

			updates := mem.CallsTo("update")
			Expect(updates).To(HaveLen(1))
			Expect(updates[0].Collection).To(Equal(store.Shows))
		})
	})
})
