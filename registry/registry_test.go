package registry

import (
	"net/http"
	"sync"

	"github.com/zerbitx/apimock/spec"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func scenarios(keys ...string) spec.Responses {
	responses := spec.Responses{}
	for _, key := range keys {
		responses = append(responses, spec.Scenario{Key: key, Response: spec.Response{Status: http.StatusOK}})
	}
	return responses
}

func withDefault(responses spec.Responses, keys ...string) spec.Responses {
	for _, key := range keys {
		for i := range responses {
			if responses[i].Key == key {
				responses[i].Response.Default = true
			}
		}
	}
	return responses
}

var _ = Describe("State", func() {
	var state *State

	BeforeEach(func() {
		state = New()
	})

	Context("identifiers", func() {
		It("uses the name when there is one", func() {
			Expect(Identifier(&spec.Mock{Name: "foo", Expression: "/api/x", Method: "GET"})).To(Equal("foo"))
		})

		It("joins expression and method otherwise", func() {
			Expect(Identifier(&spec.Mock{Expression: "/api/x", Method: "GET"})).To(Equal("/api/x$$GET"))
		})

		It("is set on the stored mock", func() {
			state.RegisterMocks(&spec.Mock{Expression: "/api/x", Method: "GET"})

			m, ok := state.Mock("/api/x$$GET")
			Expect(ok).To(BeTrue())
			Expect(m.Identifier).To(Equal("/api/x$$GET"))
		})
	})

	Context("registering mocks", func() {
		It("does nothing for no mocks", func() {
			state.RegisterMocks()
			Expect(state.Mocks()).To(BeEmpty())
		})

		It("keeps one entry per identifier", func() {
			m := &spec.Mock{Name: "items", Expression: "/items", Method: "GET", Responses: scenarios("ok")}
			state.RegisterMocks(m)
			state.RegisterMocks(m)
			Expect(state.Mocks()).To(HaveLen(1))

			changed := *m
			changed.Expression = "/items/v2"
			state.RegisterMocks(&changed)

			Expect(state.Mocks()).To(HaveLen(1))
			Expect(state.Mocks()[0].Expression).To(Equal("/items/v2"))
		})

		It("replaces in place so the catalog order is kept", func() {
			m1 := &spec.Mock{Name: "m1", Expression: "/one", Method: "GET"}
			m2 := &spec.Mock{Name: "m2", Expression: "/two", Method: "GET"}
			state.RegisterMocks(m1, m2)

			updated := *m1
			updated.Method = "POST"
			state.RegisterMocks(&updated)

			mocks := state.Mocks()
			Expect(mocks).To(HaveLen(2))
			Expect(mocks[0].Name).To(Equal("m1"))
			Expect(mocks[0].Method).To(Equal("POST"))
			Expect(mocks[1].Name).To(Equal("m2"))
		})

		It("is not affected by later changes to the registered value", func() {
			m := &spec.Mock{Name: "m", Expression: "/m", Method: "GET", Responses: spec.Responses{
				{Key: "a", Response: spec.Response{
					Status:  http.StatusOK,
					Headers: map[string]string{"X-Mock": "a"},
					Data:    map[string]interface{}{"items": []interface{}{"one"}},
				}},
			}}
			state.RegisterMocks(m)

			m.Expression = "/changed"
			m.Responses[0].Key = "zzz"
			m.Responses[0].Response.Status = http.StatusTeapot
			m.Responses[0].Response.Headers["X-Mock"] = "changed"
			m.Responses[0].Response.Data.(map[string]interface{})["items"].([]interface{})[0] = "changed"

			stored, _ := state.Mock("m")
			Expect(stored.Expression).To(Equal("/m"))
			Expect(stored.Responses[0].Key).To(Equal("a"))
			Expect(stored.Responses[0].Response.Status).To(Equal(http.StatusOK))
			Expect(stored.Responses[0].Response.Headers).To(HaveKeyWithValue("X-Mock", "a"))
			Expect(stored.Responses[0].Response.Data).To(Equal(map[string]interface{}{"items": []interface{}{"one"}}))
		})

		It("seeds defaults and selections from the default response", func() {
			state.RegisterMocks(&spec.Mock{Name: "m", Expression: "/m", Method: "GET",
				Responses: withDefault(scenarios("a", "b", "c"), "b")})

			Expect(state.Defaults()).To(HaveKeyWithValue("m", "b"))
			Expect(state.Selections("")).To(HaveKeyWithValue("m", "b"))
		})

		It("honors only the first default in declaration order", func() {
			state.RegisterMocks(&spec.Mock{Name: "m", Expression: "/m", Method: "GET",
				Responses: withDefault(scenarios("z", "a", "y"), "y", "a")})

			Expect(state.Defaults()).To(HaveKeyWithValue("m", "a"))
		})

		It("leaves mocks without a default out of both maps", func() {
			state.RegisterMocks(&spec.Mock{Name: "m", Expression: "/m", Method: "GET", Responses: scenarios("a", "b")})

			Expect(state.Defaults()).NotTo(HaveKey("m"))
			Expect(state.Selections("")).NotTo(HaveKey("m"))
		})

		It("resets the global selection on re-registration", func() {
			m := &spec.Mock{Name: "m", Expression: "/m", Method: "GET", Responses: withDefault(scenarios("a", "b"), "a")}
			state.RegisterMocks(m)
			Expect(state.Select("", "m", "b")).ShouldNot(HaveOccurred())

			state.RegisterMocks(m)
			Expect(state.Selections("")).To(HaveKeyWithValue("m", "a"))
		})

		It("is safe to call while others read", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(2)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					state.RegisterMocks(&spec.Mock{Name: "m", Expression: "/m", Method: "GET",
						Responses: withDefault(scenarios("a"), "a")})
				}()
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for _, m := range state.Mocks() {
						Expect(m.Identifier).To(Equal("m"))
					}
					state.Selected("tab", "m")
				}()
			}
			wg.Wait()

			Expect(state.Mocks()).To(HaveLen(1))
		})
	})

	Context("checking identifiers", func() {
		It("accepts re-registration of the same kind", func() {
			state.RegisterMocks(&spec.Mock{Expression: "/x", Method: "GET"})
			Expect(state.CheckIdentifiers(&spec.Mock{Expression: "/x", Method: "GET"})).ShouldNot(HaveOccurred())
		})

		It("reports a named mock clashing with a derived identifier", func() {
			state.RegisterMocks(&spec.Mock{Expression: "/x", Method: "GET"})

			err := state.CheckIdentifiers(&spec.Mock{Name: "/x$$GET", Expression: "/y", Method: "PUT"})
			Expect(err).To(Equal(IdentifierCollision("/x$$GET")))
		})

		It("reports clashes within one batch", func() {
			err := state.CheckIdentifiers(
				&spec.Mock{Name: "/x$$GET", Expression: "/y", Method: "PUT"},
				&spec.Mock{Expression: "/x", Method: "GET"},
			)
			Expect(err).Should(HaveOccurred())
		})
	})
})
