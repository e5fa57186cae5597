package loader

import (
	"io/ioutil"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Load", func() {
	var dir string

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).ShouldNot(HaveOccurred())
		Expect(ioutil.WriteFile(path, []byte(content), 0644)).ShouldNot(HaveOccurred())
		return path
	}

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "apimock-loader")
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).ShouldNot(HaveOccurred())
	})

	It("loads JSON definitions recursively in lexical order", func() {
		write("b/users.json", `{
	"name": "users",
	"expression": "/api/users",
	"method": "GET",
	"responses": {
		"ok": {"default": true, "data": [{"name": "alice"}]},
		"error": {"status": 500}
	}
}`)
		write("a/nested/orders.json", `{"expression": "/api/orders", "method": "POST", "responses": {"ok": {}}}`)
		write("a/ignored.txt", `not a mock`)

		mocks, err := Load(filepath.Join(dir, "**", "*.json"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(mocks).To(HaveLen(2))
		Expect(mocks[0].Expression).To(Equal("/api/orders"))
		Expect(mocks[1].Name).To(Equal("users"))
		Expect(mocks[1].Responses[0].Key).To(Equal("ok"))
		Expect(mocks[1].Responses[0].Response.Default).To(BeTrue())
		Expect(mocks[1].Responses[1].Response.Status).To(Equal(500))
	})

	It("loads lists of YAML mocks and resolves response files", func() {
		write("mocks.yaml", `
- name: ships
  expression: ^/ships
  method: GET
  responses:
    galaxy:
      default: true
      file: bodies/galaxy.json
    absolute:
      file: /tmp/absolute.json
- name: crew
  expression: ^/crew
  method: GET
  responses: {}
`)

		mocks, err := Load(filepath.Join(dir, "*.yaml"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(mocks).To(HaveLen(2))
		Expect(mocks[0].Responses[0].Response.File).To(Equal(filepath.Join(dir, "bodies", "galaxy.json")))
		Expect(mocks[0].Responses[1].Response.File).To(Equal("/tmp/absolute.json"))
		Expect(mocks[1].Name).To(Equal("crew"))
	})

	It("returns nothing when nothing matches", func() {
		mocks, err := Load(filepath.Join(dir, "**", "*.json"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(mocks).To(BeEmpty())
	})

	It("rejects invalid definitions", func() {
		file := write("bad.json", `{"expression": "([", "method": "GET"}`)

		_, err := LoadFile(file)
		Expect(err).To(BeAssignableToTypeOf(InvalidMock{}))
		Expect(err.Error()).To(ContainSubstring(file))

		_, err = LoadFile(write("nomethod.json", `{"expression": "/x"}`))
		Expect(err).To(MatchError(ContainSubstring("missing method")))

		_, err = LoadFile(write("noexpr.json", `{"method": "GET"}`))
		Expect(err).To(MatchError(ContainSubstring("missing expression")))
	})

	It("reports unreadable and undecodable files", func() {
		_, err := LoadFile(filepath.Join(dir, "missing.json"))
		Expect(err).Should(HaveOccurred())

		_, err = LoadFile(write("broken.json", `{"expression": [`))
		Expect(err).Should(HaveOccurred())
	})
})
