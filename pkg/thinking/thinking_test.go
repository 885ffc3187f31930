package thinking_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/thinking"
)

// feed runs every delta through Step and collects all updates in order.
func feed(deltas ...string) (thinking.State, []thinking.Update) {
	var (
		state thinking.State
		all   []thinking.Update
	)
	for _, d := range deltas {
		var updates []thinking.Update
		state, updates = thinking.Step(state, d)
		all = append(all, updates...)
	}
	return state, all
}

func thought(s string) thinking.Update {
	return thinking.Update{Kind: thinking.KindThinking, Text: s}
}

func content(s string) thinking.Update {
	return thinking.Update{Kind: thinking.KindContent, Text: s}
}

var _ = Describe("Step", func() {
	It("passes plain text through as trimmed content", func() {
		state, updates := feed("  hello world \n")
		Expect(updates).To(Equal([]thinking.Update{content("hello world")}))
		Expect(state.Buffer).To(BeEmpty())
	})

	It("emits nothing for an empty delta", func() {
		state, updates := feed("")
		Expect(updates).To(BeEmpty())
		Expect(state).To(Equal(thinking.State{}))
	})

	It("splits a pair that arrives in a single delta", func() {
		state, updates := feed("<think> reasoning </think> answer")
		Expect(updates).To(Equal([]thinking.Update{thought("reasoning"), content("answer")}))
		Expect(state.LastThinking).To(Equal("reasoning"))
		Expect(state.Buffer).To(BeEmpty())
	})

	It("keeps text on both sides of the pair as content", func() {
		_, updates := feed("before <think>x</think> after")
		Expect(updates).To(Equal([]thinking.Update{thought("x"), content("before  after")}))
	})

	It("handles tags split across three chunk boundaries", func() {
		state, updates := feed("<thi", "nk>hello</thi", "nk>world")
		Expect(updates).To(Equal([]thinking.Update{thought("hello"), content("world")}))
		Expect(state.Buffer).To(BeEmpty())
	})

	It("buffers everything after an open tag until the close tag arrives", func() {
		state, updates := feed("<think>step one", " step two")
		Expect(updates).To(BeEmpty())
		Expect(state.Buffer).To(Equal("<think>step one step two"))

		state, updates = thinking.Step(state, "</think>done")
		Expect(updates).To(Equal([]thinking.Update{thought("step one step two"), content("done")}))
		Expect(state.Buffer).To(BeEmpty())
	})

	It("holds back a partial open tag and releases the text before it", func() {
		state, updates := feed("intro <th")
		Expect(updates).To(Equal([]thinking.Update{content("intro")}))
		Expect(state.Buffer).To(Equal("<th"))
	})

	It("releases a held prefix that turns out not to be a tag", func() {
		_, updates := feed("a <", "b")
		Expect(updates).To(Equal([]thinking.Update{content("a"), content("<b")}))
	})

	It("suppresses a thinking update identical to the previous one", func() {
		_, updates := feed("<think>same</think>one", "<think>same</think>two")
		Expect(updates).To(Equal([]thinking.Update{thought("same"), content("one"), content("two")}))
	})

	It("omits an empty reasoning segment", func() {
		_, updates := feed("<think>  </think>answer")
		Expect(updates).To(Equal([]thinking.Update{content("answer")}))
	})

	It("treats a lone close tag as content", func() {
		state, updates := feed("oops</think> text")
		Expect(updates).To(Equal([]thinking.Update{content("oops</think> text")}))
		Expect(state.Buffer).To(BeEmpty())
	})

	It("only splits the first pair of a delta", func() {
		_, updates := feed("<think>a</think>x<think>b</think>y")
		Expect(updates).To(Equal([]thinking.Update{thought("a"), content("x<think>b</think>y")}))
	})

	It("never emits a content update containing an unclosed open tag", func() {
		_, updates := feed("<think>never closed", " still thinking")
		for _, u := range updates {
			Expect(u.Text).NotTo(ContainSubstring(thinking.OpenTag))
		}
	})
})

var _ = Describe("Flush", func() {
	It("emits an unclosed reasoning segment as thinking", func() {
		state, _ := feed("lead <think>partial thought")
		state, updates := thinking.Flush(state)
		Expect(updates).To(Equal([]thinking.Update{content("lead"), thought("partial thought")}))
		Expect(state.Buffer).To(BeEmpty())
	})

	It("emits a held-back tag prefix as content", func() {
		state, _ := feed("answer <thi")
		_, updates := thinking.Flush(state)
		Expect(updates).To(Equal([]thinking.Update{content("<thi")}))
	})

	It("emits nothing when the buffer is empty", func() {
		_, updates := thinking.Flush(thinking.State{LastThinking: "x"})
		Expect(updates).To(BeEmpty())
	})
})

var _ = Describe("Splitter", func() {
	It("accumulates content across deltas", func() {
		s := thinking.NewSplitter()
		s.Feed("<think>plan</think>first")
		s.Feed("second")

		Expect(s.Thinking()).To(Equal("plan"))
		Expect(s.Content()).To(Equal("firstsecond"))
		Expect(s.Pending()).To(BeEmpty())
	})

	It("reports held text and drains it on Close", func() {
		s := thinking.NewSplitter()
		Expect(s.Feed("<think>unfinished")).To(BeEmpty())
		Expect(s.Pending()).To(Equal("<think>unfinished"))

		Expect(s.Close()).To(Equal([]thinking.Update{thought("unfinished")}))
		Expect(s.Thinking()).To(Equal("unfinished"))
		Expect(s.Pending()).To(BeEmpty())
	})
})

var _ = DescribeTable("Kind.String",
	func(k thinking.Kind, want string) {
		Expect(k.String()).To(Equal(want))
	},
	Entry("thinking", thinking.KindThinking, "thinking"),
	Entry("content", thinking.KindContent, "content"),
	Entry("unknown", thinking.Kind(9), "unknown"),
)
