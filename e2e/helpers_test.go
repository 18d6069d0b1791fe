//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// ── HTTP helpers ──────────────────────────────────────────────────────────────

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
	// Do NOT follow redirects: the form posts answer 303 and we inspect them.
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func do(method, url string, body io.Reader, contentType, token string) *http.Response {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		panic(fmt.Sprintf("e2e: failed to create %s request: %v", method, err))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		panic(fmt.Sprintf("e2e: %s %s failed: %v", method, url, err))
	}
	return resp
}

func jsonBody(v any) io.Reader {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("e2e: failed to marshal body: %v", err))
	}
	return bytes.NewReader(b)
}

// get performs a GET request with an optional session token.
func get(url, token string) *http.Response {
	return do(http.MethodGet, url, nil, "", token)
}

// post performs a POST request with a JSON body and optional session token.
func post(url string, body any, token string) *http.Response {
	return do(http.MethodPost, url, jsonBody(body), "application/json", token)
}

// put performs a PUT request with a JSON body and optional session token.
func put(url string, body any, token string) *http.Response {
	return do(http.MethodPut, url, jsonBody(body), "application/json", token)
}

// del performs a DELETE request with an optional session token.
func del(url, token string) *http.Response {
	return do(http.MethodDelete, url, nil, "", token)
}

// postForm submits an urlencoded form the way the pages do.
func postForm(url string, form url.Values, token string) *http.Response {
	return do(http.MethodPost, url, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", token)
}

// decodeJSON reads and decodes the response body into v, closing the body.
func decodeJSON(resp *http.Response, v any) {
	defer resp.Body.Close()
	ExpectWithOffset(1, json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
}

// readBody reads and returns the full response body as a string, closing it.
func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return string(b)
}

// ── Domain helpers ────────────────────────────────────────────────────────────

type entry struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Kind      string `json:"item_type"`
	Phase     int    `json:"phase"`
	Label     string `json:"label"`
	Link      string `json:"link"`
	Score     string `json:"score"`
	Base      string `json:"base"`
	Modifier  string `json:"modifier"`
	CanModify bool   `json:"can_modify"`
}

type catalogView struct {
	Phases []struct {
		Phase   int     `json:"phase"`
		Entries []entry `json:"entries"`
	} `json:"phases"`
	Editable bool `json:"editable"`
}

// firstFilm returns the first film of the catalog.
func firstFilm(token string) entry {
	var v catalogView
	resp := get(baseURL+"/api/catalog", token)
	ExpectWithOffset(1, resp.StatusCode).To(Equal(http.StatusOK))
	decodeJSON(resp, &v)
	for _, p := range v.Phases {
		for _, e := range p.Entries {
			if e.Kind == "film" {
				return e
			}
		}
	}
	Fail("catalog has no films")
	return entry{}
}
