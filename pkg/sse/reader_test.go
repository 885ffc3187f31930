package sse_test

import (
	"bufio"
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/sse"
)

// drain reads every event until the source is exhausted.
func drain(r *sse.Reader) []*sse.Event {
	var events []*sse.Event
	for {
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		if ev == nil {
			return events
		}
		events = append(events, ev)
	}
}

var _ = Describe("Reader", func() {
	Context("with completion chunks", func() {
		It("yields each data payload and the done sentinel", func() {
			input := "data: {\"choices\":[{\"delta\":{\"content\":\"<thi\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"nk>\"}}]}\n\n" +
				"data: [DONE]\n\n"

			events := drain(sse.NewReader(strings.NewReader(input)))
			Expect(events).To(HaveLen(3))
			Expect(events[0].Data).To(ContainSubstring(`"<thi"`))
			Expect(events[0].IsDone()).To(BeFalse())
			Expect(events[2].IsDone()).To(BeTrue())
		})

		It("keeps multi-byte characters intact", func() {
			events := drain(sse.NewReader(strings.NewReader("data: 甲子年\n\n")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("甲子年"))
		})
	})

	Context("field parsing", func() {
		It("parses event type and id", func() {
			events := drain(sse.NewReader(strings.NewReader("event: thinking\nid: 7\ndata: x\n\n")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal("thinking"))
			Expect(events[0].ID).To(Equal("7"))
			Expect(events[0].Data).To(Equal("x"))
		})

		It("yields every data line as its own event", func() {
			events := drain(sse.NewReader(strings.NewReader("data: # 命盘\ndata: - 年柱\n\n")))
			Expect(events).To(HaveLen(2))
			Expect(events[0].Data).To(Equal("# 命盘"))
			Expect(events[1].Data).To(Equal("- 年柱"))
		})

		It("keeps a corrupt line apart from its neighbours", func() {
			input := "data: {\"a\":1}\ndata: {not json\ndata: {\"b\":2}\ndata: [DONE]\n"

			events := drain(sse.NewReader(strings.NewReader(input)))
			Expect(events).To(HaveLen(4))
			Expect(events[0].Data).To(Equal(`{"a":1}`))
			Expect(events[1].Data).To(Equal("{not json"))
			Expect(events[2].Data).To(Equal(`{"b":2}`))
			Expect(events[3].IsDone()).To(BeTrue())
		})

		It("clears event type and id at a blank line", func() {
			events := drain(sse.NewReader(strings.NewReader("event: thinking\nid: 7\ndata: x\ndata: y\n\ndata: z\n")))
			Expect(events).To(HaveLen(3))
			Expect(events[1].Type).To(Equal("thinking"))
			Expect(events[1].ID).To(Equal("7"))
			Expect(events[2].Type).To(BeEmpty())
			Expect(events[2].ID).To(BeEmpty())
		})

		It("strips carriage returns from CRLF streams", func() {
			events := drain(sse.NewReader(strings.NewReader("data: 甲\r\n\r\ndata: [DONE]\r\n")))
			Expect(events).To(HaveLen(2))
			Expect(events[0].Data).To(Equal("甲"))
			Expect(events[1].IsDone()).To(BeTrue())
		})

		DescribeTable("data value variations",
			func(input, want string) {
				events := drain(sse.NewReader(strings.NewReader(input)))
				Expect(events).To(HaveLen(1))
				Expect(events[0].Data).To(Equal(want))
			},
			Entry("no space after the colon", "data:tight\n\n", "tight"),
			Entry("empty value", "data:\n\n", ""),
			Entry("a lone space", "data: \n\n", ""),
			Entry("only the first space is stripped", "data:  two\n\n", " two"),
			Entry("field without a colon", "data\n\n", ""),
		)

		It("ignores comments, retry and unknown fields", func() {
			events := drain(sse.NewReader(strings.NewReader(": keep-alive\nretry: 3000\nfoo: bar\ndata: hello\n\n")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("hello"))
		})
	})

	Context("stream boundaries", func() {
		It("returns nil on empty input", func() {
			ev, err := sse.NewReader(strings.NewReader("")).Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("skips leading blank lines", func() {
			events := drain(sse.NewReader(strings.NewReader("\n\n\ndata: hello\n\n")))
			Expect(events).To(HaveLen(1))
		})

		It("yields a final event that lacks a trailing blank line", func() {
			events := drain(sse.NewReader(strings.NewReader("data: unterminated")))
			Expect(events).To(HaveLen(1))
			Expect(events[0].Data).To(Equal("unterminated"))
		})

		It("fails on a line longer than the scanner limit", func() {
			long := "data: " + strings.Repeat("x", 2*1024*1024) + "\n\n"
			_, err := sse.NewReader(strings.NewReader(long)).Next()
			Expect(errors.Is(err, bufio.ErrTooLong)).To(BeTrue())
		})
	})

	Context("tee", func() {
		It("forwards every byte including comments and delimiters", func() {
			input := ": comment\ndata: first\n\ndata: [DONE]\n\n"
			dst := &bytes.Buffer{}

			drain(sse.NewTeeReader(strings.NewReader(input), dst))
			Expect(dst.String()).To(Equal(input))
		})

		It("only tees what has been read so far", func() {
			dst := &bytes.Buffer{}
			r := sse.NewTeeReader(strings.NewReader("data: a\n\ndata: b\n\n"), dst)

			_, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(dst.String()).To(Equal("data: a\n"))
		})
	})
})
