package generation_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	openai "github.com/sashabaranov/go-openai"

	"github.com/andrewpaige1/doomdeck-api/generation"
)

type fakeModelServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []map[string]any
	status   int
	content  string
	choices  bool
}

func newFakeModelServer(content string) *fakeModelServer {
	f := &fakeModelServer{status: http.StatusOK, content: content, choices: true}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		Expect(r.URL.Path).To(Equal("/v1/chat/completions"))

		body, err := io.ReadAll(r.Body)
		Expect(err).NotTo(HaveOccurred())
		var req map[string]any
		Expect(json.Unmarshal(body, &req)).To(Succeed())

		f.mu.Lock()
		f.requests = append(f.requests, req)
		status, content, choices := f.status, f.content, f.choices
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o",
			"choices": []any{},
		}
		if choices {
			resp["choices"] = []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}}
		}
		Expect(json.NewEncoder(w).Encode(resp)).To(Succeed())
	}))
	return f
}

func (f *fakeModelServer) set(mutate func(f *fakeModelServer)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mutate(f)
}

func (f *fakeModelServer) lastRequest() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeModelServer) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

var _ = Describe("Client", func() {
	var (
		server *fakeModelServer
		client *generation.Client
		ctx    context.Context
	)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: generation.SystemInstruction},
		{Role: openai.ChatMessageRoleUser, Content: "Create flashcards from this text: mitochondria"},
	}

	BeforeEach(func() {
		ctx = context.Background()
		server = newFakeModelServer(`{"flashcards":[{"front":"Powerhouse of the cell?","back":"Mitochondria"}]}`)
		DeferCleanup(server.Close)
		client = generation.NewClient(generation.Config{APIKey: "test-key", BaseURL: server.URL + "/v1/"})
	})

	It("should request a JSON-mode completion and parse the cards", func() {
		cards, err := client.Complete(ctx, messages)
		Expect(err).NotTo(HaveOccurred())
		Expect(cards).To(HaveLen(1))
		Expect(cards[0].Back).To(Equal("Mitochondria"))

		req := server.lastRequest()
		Expect(req["model"]).To(Equal(generation.DefaultModel))
		Expect(req["max_tokens"]).To(BeNumerically("==", generation.DefaultMaxTokens))
		Expect(req["response_format"]).To(HaveKeyWithValue("type", "json_object"))
		Expect(req["messages"]).To(HaveLen(2))
	})

	It("should use the configured model", func() {
		client = generation.NewClient(generation.Config{APIKey: "k", BaseURL: server.URL + "/v1", Model: "gpt-4o-mini"})
		_, err := client.Complete(ctx, messages)
		Expect(err).NotTo(HaveOccurred())
		Expect(server.lastRequest()["model"]).To(Equal("gpt-4o-mini"))
	})

	It("should report missing choices as no content", func() {
		server.set(func(f *fakeModelServer) { f.choices = false })
		_, err := client.Complete(ctx, messages)
		Expect(err).To(MatchError(generation.ErrNoContent))
	})

	It("should report an empty message as no content", func() {
		server.set(func(f *fakeModelServer) { f.content = "   " })
		_, err := client.Complete(ctx, messages)
		Expect(err).To(MatchError(generation.ErrNoContent))
	})

	It("should surface malformed output", func() {
		server.set(func(f *fakeModelServer) { f.content = `{"flashcards": "soon"}` })
		_, err := client.Complete(ctx, messages)
		Expect(err).To(MatchError(generation.ErrMalformedOutput))
	})

	It("should not retry upstream failures", func() {
		server.set(func(f *fakeModelServer) { f.status = http.StatusInternalServerError })
		_, err := client.Complete(ctx, messages)
		Expect(err).To(HaveOccurred())
		Expect(server.requestCount()).To(Equal(1))
	})
})

var _ = Describe("Service", func() {
	It("should build the prompt and return the parsed cards with the report", func() {
		server := newFakeModelServer(`{"flashcards":[{"front":"Q","back":"A"},{"front":"Q2","back":"A2"}]}`)
		DeferCleanup(server.Close)

		service := generation.NewService(
			generation.NewBuilder(&fakeExtractor{}),
			generation.NewClient(generation.Config{APIKey: "k", BaseURL: server.URL + "/v1"}),
		)
		result, err := service.Generate(context.Background(), generation.Request{
			Prompt: "Biology",
			Files:  []generation.Upload{{Name: "notes.txt", Data: []byte("plain words")}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Flashcards).To(HaveLen(2))
		Expect(result.Report.Skipped).To(Equal([]string{"notes.txt"}))

		// system + prompt + final
		Expect(server.lastRequest()["messages"]).To(HaveLen(3))
	})

	It("should not call the model when there is nothing to generate from", func() {
		server := newFakeModelServer(`{}`)
		DeferCleanup(server.Close)

		service := generation.NewService(
			generation.NewBuilder(&fakeExtractor{}),
			generation.NewClient(generation.Config{APIKey: "k", BaseURL: server.URL + "/v1"}),
		)
		_, err := service.Generate(context.Background(), generation.Request{})
		Expect(err).To(MatchError(generation.ErrNothingToGenerate))
		Expect(server.requestCount()).To(BeZero())
	})
})
