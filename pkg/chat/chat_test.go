package chat_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/chat"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/logger"
)

func chunk(content string) string {
	return fmt.Sprintf("data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", content)
}

// chunkLine is chunk without the blank line that ends the event.
func chunkLine(content string) string {
	return strings.TrimSuffix(chunk(content), "\n")
}

// collect drains a stream into its deltas and terminal event.
func collect(events <-chan chat.Event) ([]string, chat.Event) {
	var (
		deltas []string
		last   chat.Event
	)
	for ev := range events {
		if ev.Delta != "" {
			deltas = append(deltas, ev.Delta)
			continue
		}
		last = ev
	}
	return deltas, last
}

var request = chat.Request{
	Model:       "Pro/deepseek-ai/DeepSeek-R1",
	Messages:    []llm.Message{llm.System("sys"), llm.User("请分析我的八字")},
	Temperature: 0.7,
}

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		respond  func(w http.ResponseWriter)
		captured *http.Request
		reqBody  []byte
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		respond = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, chunk("<thi")+chunk("nk>hello</thi")+chunk("nk>world")+"data: [DONE]\n\n")
		}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = r
			reqBody, _ = io.ReadAll(r.Body)
			respond(w)
		}))
		DeferCleanup(server.Close)
	})

	newClient := func(opts ...chat.Option) *chat.Client {
		return chat.NewClient(chat.Config{Endpoint: server.URL + "/v1/chat/completions", APIKey: "sk-test"}, opts...)
	}

	It("streams content deltas and finishes on [DONE]", func() {
		events, err := newClient().Stream(ctx, request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(deltas).To(Equal([]string{"<thi", "nk>hello</thi", "nk>world"}))
		Expect(last.Done).To(BeTrue())
		Expect(last.Err).NotTo(HaveOccurred())
	})

	It("sends an authenticated streaming request", func() {
		events, err := newClient().Stream(ctx, request)
		Expect(err).NotTo(HaveOccurred())
		collect(events)

		Expect(captured.Method).To(Equal(http.MethodPost))
		Expect(captured.URL.Path).To(Equal("/v1/chat/completions"))
		Expect(captured.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
		Expect(captured.Header.Get("Accept")).To(Equal("text/event-stream"))

		var body map[string]any
		Expect(json.Unmarshal(reqBody, &body)).To(Succeed())
		Expect(body["model"]).To(Equal("Pro/deepseek-ai/DeepSeek-R1"))
		Expect(body["stream"]).To(BeTrue())
		Expect(body["temperature"]).To(BeNumerically("~", 0.7))
		Expect(body).NotTo(HaveKey("max_tokens"))
		Expect(body["messages"]).To(HaveLen(2))
	})

	It("sends max_tokens when set", func() {
		req := request
		req.MaxTokens = 2048
		events, err := newClient().Stream(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		collect(events)

		var body map[string]any
		Expect(json.Unmarshal(reqBody, &body)).To(Succeed())
		Expect(body["max_tokens"]).To(BeNumerically("==", 2048))
	})

	It("skips malformed chunks without aborting the stream", func() {
		var logs bytes.Buffer
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, chunk("a")+"data: {not json\n\n"+chunk("b")+"data: [DONE]\n\n")
		}

		events, err := newClient(chat.WithLogger(logger.New(logger.WithWriter(&logs)))).Stream(ctx, request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(deltas).To(Equal([]string{"a", "b"}))
		Expect(last.Done).To(BeTrue())
		Expect(logs.String()).To(ContainSubstring("skipping malformed stream chunk"))
	})

	It("parses each data line on its own when events are not blank-line separated", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, chunkLine("hello")+"data: {not json\n"+chunkLine("world")+"data: [DONE]\n")
		}

		events, err := newClient().Stream(ctx, request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(deltas).To(Equal([]string{"hello", "world"}))
		Expect(last.Done).To(BeTrue())
	})

	It("ends with a RequestError when the upstream sends an error payload", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, chunk("a")+"data: {\"error\":{\"message\":\"rate limited\"}}\n\n"+chunk("b"))
		}

		events, err := newClient().Stream(ctx, request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(deltas).To(Equal([]string{"a"}))
		Expect(errors.Is(last.Err, chat.ErrChatRequest)).To(BeTrue())
		Expect(last.Err.Error()).To(ContainSubstring("rate limited"))
	})

	It("ignores chunks without content and anything after [DONE]", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n"+
				chunk("only")+"data: [DONE]\n\n"+chunk("late"))
		}

		events, err := newClient().Stream(ctx, request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(deltas).To(Equal([]string{"only"}))
		Expect(last.Done).To(BeTrue())
	})

	It("finishes when the body ends without [DONE]", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, chunk("甲子"))
		}

		events, err := newClient().Stream(ctx, request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(deltas).To(Equal([]string{"甲子"}))
		Expect(last.Done).To(BeTrue())
	})

	It("returns a RequestError on a non-2xx status", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid token"}`)
		}

		events, err := newClient().Stream(ctx, request)
		Expect(events).To(BeNil())
		Expect(errors.Is(err, chat.ErrChatRequest)).To(BeTrue())

		var reqErr *chat.RequestError
		Expect(errors.As(err, &reqErr)).To(BeTrue())
		Expect(reqErr.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(reqErr.Error()).To(ContainSubstring("Invalid token"))
	})

	It("returns a RequestError when the endpoint is unreachable", func() {
		server.Close()
		_, err := newClient().Stream(ctx, request)
		Expect(errors.Is(err, chat.ErrChatRequest)).To(BeTrue())
	})

	It("copies the raw stream into a transcript", func() {
		var transcript bytes.Buffer
		events, err := newClient(chat.WithTranscript(&transcript)).Stream(ctx, request)
		Expect(err).NotTo(HaveOccurred())
		collect(events)

		Expect(transcript.String()).To(Equal(chunk("<thi") + chunk("nk>hello</thi") + chunk("nk>world") + "data: [DONE]\n\n"))
	})

	It("closes the channel once the context is cancelled", func() {
		release := make(chan struct{})
		DeferCleanup(func() { close(release) })
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, chunk("first"))
			w.(http.Flusher).Flush()
			<-release
		}

		cctx, cancel := context.WithCancel(ctx)
		events, err := newClient().Stream(cctx, request)
		Expect(err).NotTo(HaveOccurred())

		Eventually(events).Should(Receive(Equal(chat.Event{Delta: "first"})))
		cancel()
		Eventually(events).Should(BeClosed())
	})
})

var _ = Describe("SDKClient", func() {
	var (
		server  *httptest.Server
		respond func(w http.ResponseWriter)
		reqBody []byte
	)

	BeforeEach(func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, chunk("<think>plan</think>")+chunk("answer")+"data: [DONE]\n\n")
		}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/chat/completions" {
				http.NotFound(w, r)
				return
			}
			reqBody, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "text/event-stream")
			respond(w)
		}))
		DeferCleanup(server.Close)
	})

	newClient := func(opts ...chat.Option) *chat.SDKClient {
		return chat.NewSDKClient(chat.Config{Endpoint: server.URL + "/v1/chat/completions", APIKey: "sk-test"}, opts...)
	}

	It("streams deltas through the SDK", func() {
		events, err := newClient().Stream(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(strings.Join(deltas, "")).To(Equal("<think>plan</think>answer"))
		Expect(last.Done).To(BeTrue())

		var body map[string]any
		Expect(json.Unmarshal(reqBody, &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("stream", true))
		Expect(body).To(HaveKeyWithValue("model", request.Model))
	})

	It("skips a malformed chunk between two good ones", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, chunk("hello")+"data: {not json\n\n"+chunk("world")+"data: [DONE]\n\n")
		}

		events, err := newClient().Stream(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(deltas).To(Equal([]string{"hello", "world"}))
		Expect(last.Done).To(BeTrue())
	})

	It("parses each data line on its own when events are not blank-line separated", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, chunkLine("hello")+"data: {not json\n"+chunkLine("world")+"data: [DONE]\n")
		}

		events, err := newClient().Stream(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())

		deltas, last := collect(events)
		Expect(deltas).To(Equal([]string{"hello", "world"}))
		Expect(last.Done).To(BeTrue())
	})

	It("returns a RequestError with the status on a non-2xx response", func() {
		respond = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
		}

		_, err := newClient().Stream(context.Background(), request)
		var reqErr *chat.RequestError
		Expect(errors.As(err, &reqErr)).To(BeTrue())
		Expect(reqErr.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("copies the raw stream into a transcript", func() {
		var transcript bytes.Buffer

		events, err := newClient(chat.WithTranscript(&transcript)).Stream(context.Background(), request)
		Expect(err).NotTo(HaveOccurred())
		collect(events)

		Expect(transcript.String()).To(ContainSubstring("data: [DONE]"))
	})

	It("rejects a request without a model", func() {
		_, err := newClient().Stream(context.Background(), chat.Request{Messages: request.Messages})
		Expect(errors.Is(err, chat.ErrChatRequest)).To(BeTrue())
	})
})

var _ = Describe("New", func() {
	It("selects the backend by name", func() {
		s, err := chat.New("", chat.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&chat.Client{}))

		s, err = chat.New(chat.BackendOpenAI, chat.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&chat.SDKClient{}))

		_, err = chat.New("grpc", chat.Config{})
		Expect(err).To(MatchError(ContainSubstring("unknown chat backend")))
	})
})

var _ = DescribeTable("BaseURL",
	func(endpoint, want string) {
		Expect(chat.BaseURL(endpoint)).To(Equal(want))
	},
	Entry("default endpoint", chat.DefaultEndpoint, "https://api.siliconflow.cn/v1/"),
	Entry("trailing slash", "https://example.com/v1/chat/completions/", "https://example.com/v1/"),
	Entry("already a base", "https://example.com/v1", "https://example.com/v1/"),
)
