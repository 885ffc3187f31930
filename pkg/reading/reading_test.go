package reading_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/chat"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/reading"
	testutils "github.com/papercomputeco/bazi/pkg/utils/test"
)

var chart = bazi.Chart{
	Year:  bazi.Pillar{Stem: "庚", Branch: "午"},
	Month: bazi.Pillar{Stem: "辛", Branch: "巳"},
	Day:   bazi.Pillar{Stem: "庚", Branch: "辰"},
	Hour:  bazi.Pillar{Stem: "辛", Branch: "巳"},
}

var _ = Describe("Prompts", func() {
	It("lists pillars, gender, start year and the life decades", func() {
		p := reading.InitialPrompt(chart, bazi.Male, 2026)
		Expect(p).To(HavePrefix("请分析以下八字："))
		Expect(p).To(ContainSubstring("年柱：庚午\n月柱：辛巳\n日柱：庚辰\n时柱：辛巳\n"))
		Expect(p).To(ContainSubstring("性别：男性"))
		Expect(p).To(ContainSubstring("大运从2026年开始起运。"))
		Expect(p).To(ContainSubstring("大运为：辛巳、壬午、癸未、甲申、乙酉、丙戌、丁亥、戊子、己丑、庚寅\n"))
	})

	It("steps the life decades backwards for a female chart", func() {
		p := reading.InitialPrompt(chart, bazi.Female, 2026)
		Expect(p).To(ContainSubstring("性别：女性"))
		Expect(p).To(ContainSubstring("大运为：辛巳、庚辰、己卯"))
	})

	It("ends the follow-up prompt with the question", func() {
		p := reading.FollowUpPrompt(chart, bazi.Female, "明年财运如何？")
		Expect(p).To(HavePrefix("基于以下八字：\n年柱：庚午"))
		Expect(p).To(HaveSuffix("回答用户的问题：明年财运如何？"))
	})

	It("asks for a mind map without decades", func() {
		p := reading.MindmapPrompt(chart, bazi.Male)
		Expect(p).To(HavePrefix("请分析以下八字并生成思维导图："))
		Expect(p).NotTo(ContainSubstring("大运为"))
	})
})

var _ = Describe("Analyzer", func() {
	var (
		streamer *testutils.MockStreamer
		analyzer *reading.Analyzer
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		streamer = &testutils.MockStreamer{}
		analyzer = &reading.Analyzer{
			Streamer:    streamer,
			Temperature: 0.7,
			Now:         func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) },
		}
	})

	It("splits thinking from content across chunk boundaries", func() {
		streamer.Events = testutils.Deltas("<thi", "nk>hello</thi", "nk>world")

		updates, err := analyzer.Analyze(ctx, reading.AnalysisRequest{Chart: chart, Gender: bazi.Male})
		Expect(err).NotTo(HaveOccurred())

		var got []reading.Update
		for u := range updates {
			got = append(got, u)
		}
		Expect(got).To(Equal([]reading.Update{
			{Thinking: "hello"},
			{Content: "world"},
			{Done: true},
		}))
	})

	It("sends the system prompt and the initial prompt with defaults", func() {
		streamer.Events = testutils.Deltas("ok")

		updates, err := analyzer.Analyze(ctx, reading.AnalysisRequest{Chart: chart, Gender: bazi.Male})
		Expect(err).NotTo(HaveOccurred())
		_, content, err := reading.Collect(updates)
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal("ok"))

		Expect(streamer.Last().Model).To(Equal(reading.DefaultAnalysisModel))
		Expect(streamer.Last().Temperature).To(Equal(0.7))
		Expect(streamer.Last().Messages).To(HaveLen(2))
		Expect(streamer.Last().Messages[0]).To(Equal(llm.System(reading.AnalysisSystemPrompt)))
		Expect(streamer.Last().Messages[1].Content).To(ContainSubstring("大运从2030年开始起运。"))
	})

	It("answers a follow-up question after the history", func() {
		streamer.Events = testutils.Deltas("<think>r</think>answer")
		history := reading.AppendTurn(nil, reading.InitialQuestion, "first thoughts", "first answer")

		updates, err := analyzer.Analyze(ctx, reading.AnalysisRequest{
			Chart:    chart,
			Gender:   bazi.Female,
			History:  history,
			Question: "事业如何？",
		})
		Expect(err).NotTo(HaveOccurred())

		thought, content, err := reading.Collect(updates)
		Expect(err).NotTo(HaveOccurred())
		Expect(thought).To(Equal("r"))
		Expect(content).To(Equal("answer"))

		msgs := streamer.Last().Messages
		Expect(msgs).To(HaveLen(4))
		Expect(msgs[1]).To(Equal(llm.User(reading.InitialQuestion)))
		Expect(msgs[2].Thinking).To(Equal("first thoughts"))
		Expect(msgs[3].Content).To(HavePrefix("基于以下八字"))
		Expect(msgs[3].Content).To(HaveSuffix("事业如何？"))
	})

	It("falls back to the last history message as the question", func() {
		msgs := analyzer.Messages(reading.AnalysisRequest{
			Chart:   chart,
			Gender:  bazi.Male,
			History: []llm.Message{llm.User("婚姻呢？")},
		})
		Expect(msgs[len(msgs)-1].Content).To(HaveSuffix("婚姻呢？"))
	})

	It("reports a stream error and keeps what was already emitted", func() {
		boom := errors.New("connection reset")
		streamer.Events = []chat.Event{{Delta: "partial"}, {Err: boom}}

		updates, err := analyzer.Analyze(ctx, reading.AnalysisRequest{Chart: chart, Gender: bazi.Male})
		Expect(err).NotTo(HaveOccurred())

		_, content, err := reading.Collect(updates)
		Expect(content).To(Equal("partial"))
		Expect(err).To(MatchError(boom))
	})

	It("flushes an unclosed reasoning segment when the stream ends", func() {
		streamer.Events = testutils.Deltas("<think>cut short")

		updates, err := analyzer.Analyze(ctx, reading.AnalysisRequest{Chart: chart, Gender: bazi.Male})
		Expect(err).NotTo(HaveOccurred())

		thought, content, err := reading.Collect(updates)
		Expect(err).NotTo(HaveOccurred())
		Expect(thought).To(Equal("cut short"))
		Expect(content).To(BeEmpty())
	})

	It("returns start errors directly", func() {
		streamer.StartErr = &chat.RequestError{StatusCode: 401}
		_, err := analyzer.Analyze(ctx, reading.AnalysisRequest{Chart: chart, Gender: bazi.Male})
		Expect(errors.Is(err, chat.ErrChatRequest)).To(BeTrue())
	})

	It("rejects an invalid chart before calling upstream", func() {
		_, err := analyzer.Analyze(ctx, reading.AnalysisRequest{Gender: bazi.Male})
		Expect(errors.Is(err, reading.ErrInvalidChart)).To(BeTrue())
		Expect(streamer.Requests()).To(BeEmpty())
	})

	It("stops when the context is cancelled", func() {
		streamer.Events = testutils.Deltas("a", "b", "c")
		cctx, cancel := context.WithCancel(ctx)

		updates, err := analyzer.Analyze(cctx, reading.AnalysisRequest{Chart: chart, Gender: bazi.Male})
		Expect(err).NotTo(HaveOccurred())
		Eventually(updates).Should(Receive(Equal(reading.Update{Content: "a"})))

		cancel()
		Eventually(updates).Should(BeClosed())
	})

	It("gives each analysis its own reducer state", func() {
		streamer.Events = testutils.Deltas("<think>same</think>one")

		for range 2 {
			updates, err := analyzer.Analyze(ctx, reading.AnalysisRequest{Chart: chart, Gender: bazi.Male})
			Expect(err).NotTo(HaveOccurred())
			thought, _, err := reading.Collect(updates)
			Expect(err).NotTo(HaveOccurred())
			Expect(thought).To(Equal("same"))
		}
	})
})

var _ = Describe("Mindmapper", func() {
	It("emits the full markdown received so far", func() {
		streamer := &testutils.MockStreamer{Events: testutils.Deltas("# 命盘\n", "## 五行\n", "- 金旺")}
		m := &reading.Mindmapper{Streamer: streamer, Temperature: 0.7}

		updates, err := m.Generate(context.Background(), chart, bazi.Male)
		Expect(err).NotTo(HaveOccurred())

		var seen []string
		for u := range updates {
			Expect(u.Err).NotTo(HaveOccurred())
			seen = append(seen, u.Markdown)
		}
		Expect(seen).To(Equal([]string{
			"# 命盘\n",
			"# 命盘\n## 五行\n",
			"# 命盘\n## 五行\n- 金旺",
			"# 命盘\n## 五行\n- 金旺",
		}))

		Expect(streamer.Last().Model).To(Equal(reading.DefaultMindmapModel))
		Expect(streamer.Last().Messages[0].Content).To(Equal(reading.MindmapSystemPrompt))
	})

	It("does not split think tags", func() {
		streamer := &testutils.MockStreamer{Events: testutils.Deltas("<think>x</think>")}
		m := &reading.Mindmapper{Streamer: streamer}

		updates, err := m.Generate(context.Background(), chart, bazi.Female)
		Expect(err).NotTo(HaveOccurred())

		markdown, err := reading.CollectMarkdown(updates)
		Expect(err).NotTo(HaveOccurred())
		Expect(markdown).To(Equal("<think>x</think>"))
	})

	It("reports stream errors with the partial markdown", func() {
		streamer := &testutils.MockStreamer{Events: []chat.Event{{Delta: "# a"}, {Err: errors.New("eof")}}}
		m := &reading.Mindmapper{Streamer: streamer}

		updates, err := m.Generate(context.Background(), chart, bazi.Male)
		Expect(err).NotTo(HaveOccurred())

		markdown, err := reading.CollectMarkdown(updates)
		Expect(markdown).To(Equal("# a"))
		Expect(err).To(MatchError("eof"))
	})
})
