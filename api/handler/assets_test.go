package handler_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AssetHandler", func() {
	DescribeTable("serves embedded assets with their content type",
		func(path, contentType string) {
			w := doGet(router, path)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(HavePrefix(contentType))
			Expect(w.Header().Get("Cache-Control")).To(ContainSubstring("max-age"))
			Expect(w.Body.Len()).To(BeNumerically(">", 0))
		},
		Entry("stylesheet", "/static/app.css", "text/css"),
		Entry("script", "/static/app.js", "text/javascript"),
		Entry("icon", "/static/favicon.svg", "image/svg+xml"),
	)

	It("returns 404 for unknown files", func() {
		Expect(doGet(router, "/static/missing.css").Code).To(Equal(http.StatusNotFound))
	})

	It("does not escape the asset directory", func() {
		Expect(doGet(router, "/static/../static.go").Code).To(Equal(http.StatusNotFound))
	})
})
