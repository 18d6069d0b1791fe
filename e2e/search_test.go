//go:build e2e

package e2e

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type result struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Label string `json:"label"`
	Link  string `json:"link"`
}

var _ = Describe("Search", func() {
	It("returns nothing for a single character", func() {
		var body struct {
			Results []result `json:"results"`
		}
		decodeJSON(get(baseURL+"/api/search?q=i", guestToken), &body)
		Expect(body.Results).To(BeEmpty())
	})

	It("finds a film by a substring of its title", func() {
		film := firstFilm(guestToken)
		needle := strings.ToLower(film.Title[:min(4, len(film.Title))])

		var body struct {
			Results []result `json:"results"`
		}
		decodeJSON(get(baseURL+"/api/search?q="+needle, guestToken), &body)
		Expect(body.Results).To(ContainElement(HaveField("ID", film.ID)))
	})

	It("drives the typeahead over the websocket", func() {
		film := firstFilm(guestToken)

		header := http.Header{}
		header.Set("Authorization", "Bearer "+guestToken)
		url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/search/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, header)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		type event struct {
			Query    string   `json:"query"`
			Results  []result `json:"results"`
			Open     bool     `json:"open"`
			Navigate string   `json:"navigate"`
		}
		read := func() event {
			var ev event
			Expect(conn.SetReadDeadline(time.Now().Add(5 * time.Second))).To(Succeed())
			Expect(conn.ReadJSON(&ev)).To(Succeed())
			return ev
		}

		read()
		Expect(conn.WriteJSON(map[string]any{"type": "query", "query": film.Title})).To(Succeed())
		ev := read()
		Expect(ev.Open).To(BeTrue())
		Expect(ev.Results).NotTo(BeEmpty())

		Expect(conn.WriteJSON(map[string]any{"type": "key", "key": "Enter"})).To(Succeed())
		ev = read()
		Expect(ev.Navigate).To(HavePrefix("/title/"))
	})
})
