//go:build e2e

package e2e

import (
	"net/http"
	"net/url"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Scores", func() {
	var film entry

	BeforeEach(func() {
		film = firstFilm(adminToken)
		original := film.Score
		DeferCleanup(func() {
			put(baseURL+"/api/titles/"+strconv.FormatInt(film.ID, 10)+"/score",
				map[string]string{"kind": film.Kind, "score": original}, adminToken).Body.Close()
		})
	})

	scorePath := func() string {
		return baseURL + "/api/titles/" + strconv.FormatInt(film.ID, 10) + "/score"
	}

	It("forbids guests from writing", func() {
		resp := put(scorePath(), map[string]string{"score": "8"}, guestToken)
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("stores a score and serves it back", func() {
		var e entry
		resp := put(scorePath(), map[string]string{"kind": film.Kind, "score": "8-"}, adminToken)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		decodeJSON(resp, &e)
		Expect(e.Score).To(Equal("8-"))

		var again entry
		decodeJSON(get(baseURL+"/api/titles/"+strconv.FormatInt(film.ID, 10)+"?kind="+film.Kind, guestToken), &again)
		Expect(again.Score).To(Equal("8-"))
	})

	It("cycles the modifier", func() {
		put(scorePath(), map[string]string{"kind": film.Kind, "score": "6"}, adminToken).Body.Close()

		var e entry
		decodeJSON(post(scorePath()+"/toggle?kind="+film.Kind, nil, adminToken), &e)
		Expect(e.Score).To(Equal("6+"))
		decodeJSON(post(scorePath()+"/toggle?kind="+film.Kind, nil, adminToken), &e)
		Expect(e.Score).To(Equal("6-"))
		decodeJSON(post(scorePath()+"/toggle?kind="+film.Kind, nil, adminToken), &e)
		Expect(e.Score).To(Equal("6"))
	})

	It("rejects an out-of-range year without writing", func() {
		resp := put(baseURL+"/api/titles/"+strconv.FormatInt(film.ID, 10), map[string]string{
			"kind": film.Kind, "title": film.Title, "year": "1899", "base": "7", "modifier": "",
		}, adminToken)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		resp.Body.Close()

		var again entry
		decodeJSON(get(baseURL+"/api/titles/"+strconv.FormatInt(film.ID, 10)+"?kind="+film.Kind, guestToken), &again)
		Expect(again.Year).To(Equal(film.Year))
	})

	It("redirects back after the score form", func() {
		form := url.Values{"kind": {film.Kind}, "base": {"9"}, "modifier": {"+"}, "return": {"/"}}
		resp := postForm(baseURL+"/title/"+strconv.FormatInt(film.ID, 10)+"/score", form, adminToken)
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/"))
	})
})
