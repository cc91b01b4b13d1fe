package refine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carenote/internal/clinical"
)

func TestSimulated_Refine(t *testing.T) {
	s := &Simulated{}
	out, err := s.Refine(context.Background(), Request{
		Section:  clinical.PresentingProblems,
		AgeGroup: clinical.Adults,
		Modality: clinical.EMDR,
		Text:     "<p>patient reports anxiety</p>",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"<p>Patient reports anxiety. Interventions are grounded in EMDR Therapy. "+
			"Progress will be measured against occupational and relational functioning.</p>",
		out)
}

func TestSimulated_Deterministic(t *testing.T) {
	s := &Simulated{}
	req := Request{Section: clinical.PlanStructure, AgeGroup: clinical.Children, Modality: clinical.CBT, Text: "Weekly sessions"}
	a, err := s.Refine(context.Background(), req)
	require.NoError(t, err)
	b, err := s.Refine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "grounded in cbt.")
	assert.Contains(t, a, "Caregiver observations")
}

func TestSimulated_EmptyText(t *testing.T) {
	_, err := (&Simulated{}).Refine(context.Background(), Request{Text: "<p> </p>"})
	assert.ErrorIs(t, err, ErrNothingToRefine)
}

func TestSimulated_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Simulated{Delay: time.Minute}).Refine(ctx, Request{Text: "text"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Providers(t *testing.T) {
	r, err := New(Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Simulated{}, r)

	r, err = New(Config{Provider: "OpenAI", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, r)

	r, err = New(Config{Provider: "anthropic", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, r)

	_, err = New(Config{Provider: "anthropic"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(Config{Provider: "bard"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestUserPrompt(t *testing.T) {
	p := userPrompt(Request{
		Section:  clinical.TreatmentRecommendations,
		AgeGroup: clinical.Teens,
		Modality: clinical.ArtTherapy,
		Text:     "<p>Weekly <em>art</em> sessions</p>",
	})
	assert.Contains(t, p, "Section: treatment recommendations")
	assert.Contains(t, p, "Teens & Youth (13-17)")
	assert.Contains(t, p, "art-therapy")
	assert.Contains(t, p, "Weekly art sessions")
}

func TestOpenAI_Refine(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Client reports **moderate** anxiety."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(Config{Endpoint: srv.URL + "/", Model: "test-model", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	out, err := o.Refine(context.Background(), Request{Section: clinical.PresentingProblems, Text: "anxious"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Client reports <strong>moderate</strong> anxiety.</p>", out)
	assert.Equal(t, "test-model", gotBody["model"])
}

func TestOpenAI_ServiceErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(Config{Endpoint: srv.URL, APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	_, err = o.Refine(context.Background(), Request{Text: "anxious"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAnthropic_Refine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "- sleep disruption\n- low appetite"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	a, err := NewAnthropic(Config{Endpoint: srv.URL, Model: "claude-test", APIKey: "k"}, zap.NewNop())
	require.NoError(t, err)

	out, err := a.Refine(context.Background(), Request{Section: clinical.PresentingProblems, Text: "poor sleep, not eating"})
	require.NoError(t, err)
	assert.Contains(t, out, "<li>sleep disruption</li>")
	assert.Contains(t, out, "<li>low appetite</li>")
}

type stubRefiner struct {
	out string
	err error
}

func (s stubRefiner) Refine(context.Context, Request) (string, error) { return s.out, s.err }

func TestCountedPassesThrough(t *testing.T) {
	out, err := Counted(stubRefiner{out: "<p>ok</p>"}).Refine(context.Background(), Request{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", out)

	_, err = Counted(stubRefiner{err: ErrUnavailable}).Refine(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
