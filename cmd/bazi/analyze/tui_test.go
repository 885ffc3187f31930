package analyzecmder

import (
	"context"
	"errors"

	bubbletea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/reading"
	testutils "github.com/papercomputeco/bazi/pkg/utils/test"
)

var _ = Describe("analyze TUI", func() {
	var (
		conv  *conversation
		model analyzeModel
	)

	BeforeEach(func() {
		conv = &conversation{
			analyzer: &reading.Analyzer{Streamer: testutils.NewMockStreamer("日主庚金")},
			gender:   bazi.Male,
			chart:    testChart,
		}
		model = newAnalyzeModel(context.Background(), conv, "header", false)
	})

	update := func(m analyzeModel, msg bubbletea.Msg) (analyzeModel, bubbletea.Cmd) {
		next, cmd := m.Update(msg)
		return next.(analyzeModel), cmd
	}

	It("pairs saved messages into turns", func() {
		turns := turnsFromHistory([]llm.Message{
			llm.User("q1"),
			{Role: llm.RoleAssistant, Content: "a1", Thinking: "t1"},
			llm.User("q2"),
		})

		Expect(turns).To(HaveLen(2))
		Expect(turns[0]).To(Equal(turnView{question: "q1", thinking: "t1", content: "a1"}))
		Expect(turns[1].question).To(Equal("q2"))
		Expect(turns[1].content).To(BeEmpty())
	})

	It("starts the initial reading", func() {
		m, cmd := update(model, startInitialMsg{})

		Expect(m.busy).To(BeTrue())
		Expect(m.current.question).To(Equal(reading.InitialQuestion))
		Expect(cmd).NotTo(BeNil())
	})

	It("ignores enter while a turn is streaming", func() {
		m, _ := update(model, startInitialMsg{})
		m.input.SetValue("今年如何")

		m, cmd := update(m, bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(cmd).To(BeNil())
		Expect(m.input.Value()).To(Equal("今年如何"))
	})

	It("submits a follow-up on enter", func() {
		model.input.SetValue("  今年如何  ")

		m, cmd := update(model, bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(cmd).NotTo(BeNil())
		Expect(m.current.question).To(Equal("今年如何"))
		Expect(m.input.Value()).To(BeEmpty())
	})

	It("quits on /exit", func() {
		model.input.SetValue("/exit")

		_, cmd := update(model, bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		Expect(cmd()).To(Equal(bubbletea.Quit()))
	})

	It("quits on esc", func() {
		_, cmd := update(model, bubbletea.KeyMsg{Type: bubbletea.KeyEsc})
		Expect(cmd()).To(Equal(bubbletea.Quit()))
	})

	It("accumulates stream updates", func() {
		m, _ := update(model, startInitialMsg{})
		m, _ = update(m, turnStartedMsg{turn: &turn{question: reading.InitialQuestion, updates: make(chan reading.Update)}})

		m, cmd := update(m, updateMsg{update: reading.Update{Thinking: "先看"}, ok: true})
		Expect(cmd).NotTo(BeNil())
		m, _ = update(m, updateMsg{update: reading.Update{Thinking: "先看日主"}, ok: true})
		m, _ = update(m, updateMsg{update: reading.Update{Content: "日主"}, ok: true})
		m, _ = update(m, updateMsg{update: reading.Update{Content: "庚金"}, ok: true})

		Expect(m.current.thinking).To(Equal("先看日主"))
		Expect(m.current.content).To(Equal("日主庚金"))
		Expect(m.viewport.View()).To(ContainSubstring("日主庚金"))
	})

	It("moves the finished turn into the transcript", func() {
		m, _ := update(model, startInitialMsg{})
		m, _ = update(m, turnStartedMsg{turn: &turn{question: reading.InitialQuestion, updates: make(chan reading.Update)}})
		m, _ = update(m, updateMsg{update: reading.Update{Content: "日主庚金"}, ok: true})

		m, cmd := update(m, updateMsg{update: reading.Update{Done: true}, ok: true})
		Expect(cmd).NotTo(BeNil())

		m, _ = update(m, turnRecordedMsg{})
		Expect(m.busy).To(BeFalse())
		Expect(m.current).To(BeNil())
		Expect(m.turns).To(HaveLen(1))
		Expect(m.turns[0].rendered).To(ContainSubstring("日主庚金"))
	})

	It("shows stream errors and drops the turn", func() {
		m, _ := update(model, startInitialMsg{})
		m, _ = update(m, turnStartedMsg{turn: &turn{updates: make(chan reading.Update)}})

		m, _ = update(m, updateMsg{update: reading.Update{Err: errors.New("connection reset")}, ok: true})
		Expect(m.busy).To(BeFalse())
		Expect(m.current).To(BeNil())
		Expect(m.View()).To(ContainSubstring("connection reset"))
	})

	It("shows start errors", func() {
		m, _ := update(model, startInitialMsg{})
		m, _ = update(m, turnStartedMsg{err: errors.New("upstream down")})

		Expect(m.busy).To(BeFalse())
		Expect(m.View()).To(ContainSubstring("upstream down"))
	})

	It("fits the viewport below the header", func() {
		m, _ := update(model, bubbletea.WindowSizeMsg{Width: 100, Height: 40})

		Expect(m.viewport.Width).To(Equal(100))
		Expect(m.viewport.Height).To(Equal(40 - 1 - 3))
	})
})
