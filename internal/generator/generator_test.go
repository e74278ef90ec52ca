package generator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/persona-coach/internal/domain"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }
func (f fixedRand) IntN(n int) int {
	i := int(float64(f) * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

type fakeCompleter struct {
	mu    sync.Mutex
	text  string
	err   error
	delay time.Duration
	calls []Completion
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, req Completion) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", &TransportError{Backend: "fake", Err: ctx.Err()}
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	testPersona = domain.Persona{ID: "p1", Name: "Alex", Role: "Analyst", Background: "Finance"}
	testCompany = domain.Company{ID: "2", Name: "CloudSync", Product: "CloudSync", Description: "Cloud storage", Category: "Cloud"}
)

func msg(kind domain.MessageKind, content string) domain.Message {
	return domain.NewMessage(kind, content, domain.StatusNone, time.Now())
}

func TestQuestionTierZeroFallback(t *testing.T) {
	t.Parallel()

	failing := &fakeCompleter{err: &TransportError{Backend: "fake", StatusCode: 500, Err: errors.New("boom")}}
	g := New(failing, WithRand(fixedRand(0.9)), WithLogger(quietLogger()))

	got, err := g.Question(context.Background(), testPersona, testCompany, nil)
	if err != nil {
		t.Fatalf("Question failed: %v", err)
	}
	want := "I'm new to CloudSync and I'm not sure where to start. What are the basic features I should know about?"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if failing.callCount() != 1 {
		t.Errorf("expected exactly one completion attempt, got %d", failing.callCount())
	}
}

func TestQuestionAppendsExpertise(t *testing.T) {
	t.Parallel()

	p := testPersona
	p.Expertise = []string{"SQL", "Excel"}
	g := New(nil, WithRand(fixedRand(0)))

	got, err := g.Question(context.Background(), p, testCompany, nil)
	if err != nil {
		t.Fatalf("Question failed: %v", err)
	}
	if !strings.HasSuffix(got, " Given my background in SQL, Excel, are there any specific features I should focus on?") {
		t.Errorf("expected expertise clause, got %q", got)
	}
}

func TestQuestionTiers(t *testing.T) {
	t.Parallel()

	g := New(nil, WithRand(fixedRand(0)))
	oneQuestion := []domain.Message{msg(domain.KindPersonaQuestion, "q")}
	threeQuestions := []domain.Message{
		msg(domain.KindPersonaQuestion, "q1"),
		msg(domain.KindPersonaQuestion, "q2"),
		msg(domain.KindPersonaQuestion, "q3"),
	}

	daily, _ := g.Question(context.Background(), testPersona, testCompany, oneQuestion)
	if want := render(questionTemplates[1], testPersona, testCompany); daily != want {
		t.Errorf("tier 1: expected %q, got %q", want, daily)
	}
	advanced, _ := g.Question(context.Background(), testPersona, testCompany, threeQuestions)
	if want := render(questionTemplates[6], testPersona, testCompany); advanced != want {
		t.Errorf("tier 2: expected %q, got %q", want, advanced)
	}

	last := New(nil, WithRand(fixedRand(1.0)))
	got, _ := last.Question(context.Background(), testPersona, testCompany, oneQuestion)
	if want := render(questionTemplates[5], testPersona, testCompany); got != want {
		t.Errorf("tier 1 upper bound: expected %q, got %q", want, got)
	}
	got, _ = last.Question(context.Background(), testPersona, testCompany, threeQuestions)
	if want := render(questionTemplates[9], testPersona, testCompany); got != want {
		t.Errorf("tier 2 upper bound: expected %q, got %q", want, got)
	}
}

func TestQuestionUsesGeneratedText(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{text: "  How do I share a folder with my whole team?  "}
	g := New(c, WithLogger(quietLogger()))

	got, err := g.Question(context.Background(), testPersona, testCompany, nil)
	if err != nil {
		t.Fatalf("Question failed: %v", err)
	}
	if got != "How do I share a folder with my whole team?" {
		t.Errorf("expected trimmed generated text, got %q", got)
	}
	req := c.calls[0]
	if !strings.Contains(req.System, "You are Alex, a Analyst.") || !strings.Contains(req.System, "General knowledge") {
		t.Errorf("system context missing persona identity: %q", req.System)
	}
	if !strings.Contains(req.Prompt, "introductory question") {
		t.Errorf("expected intro prompt, got %q", req.Prompt)
	}
}

func TestQuestionShortGenerationFallsBack(t *testing.T) {
	t.Parallel()

	g := New(&fakeCompleter{text: "   too short   "}, WithLogger(quietLogger()))
	got, err := g.Question(context.Background(), testPersona, testCompany, nil)
	if err != nil {
		t.Fatalf("Question failed: %v", err)
	}
	if got != render(questionTemplates[0], testPersona, testCompany) {
		t.Errorf("expected template fallback, got %q", got)
	}
}

func TestShortGenerationLogsRuneLength(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	// 13 runes, 26 bytes.
	g := New(&fakeCompleter{text: "ééééééééééééé"}, WithLogger(logger))

	if _, err := g.Question(context.Background(), testPersona, testCompany, nil); err != nil {
		t.Fatalf("Question failed: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "length=13") {
		t.Errorf("expected rune length in log, got %q", out)
	}
}

func TestQuestionTimeoutFallsBack(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{text: "this would have been a long enough question", delay: time.Second}
	g := New(c, WithTimeout(10*time.Millisecond), WithLogger(quietLogger()))

	got, err := g.Question(context.Background(), testPersona, testCompany, nil)
	if err != nil {
		t.Fatalf("expected timeout to fall back, got error %v", err)
	}
	if got != render(questionTemplates[0], testPersona, testCompany) {
		t.Errorf("expected template fallback, got %q", got)
	}
}

func TestQuestionCallerCancellationIsReturned(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := New(&fakeCompleter{text: "irrelevant generated question text"})
	if _, err := g.Question(ctx, testPersona, testCompany, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResponseWithoutSuggestionSkipsCompleter(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{text: "should never be used for this reply"}
	g := New(c)
	history := []domain.Message{
		msg(domain.KindSystem, "start"),
		msg(domain.KindPersonaQuestion, "q"),
	}

	reply, err := g.Response(context.Background(), testPersona, testCompany, history)
	if err != nil {
		t.Fatalf("Response failed: %v", err)
	}
	if reply.Status != domain.StatusUnclear || reply.Content != NoSuggestionReply {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if c.callCount() != 0 {
		t.Errorf("expected no completion calls, got %d", c.callCount())
	}
}

func TestResponseSatisfiedFallback(t *testing.T) {
	t.Parallel()

	suggestion := "Open CloudSync, follow the step-by-step guide in settings, then enable sync on each device you want to keep current."
	g := New(nil, WithRand(fixedRand(0)))
	reply, err := g.Response(context.Background(), testPersona, testCompany,
		[]domain.Message{msg(domain.KindUserSuggestion, suggestion)})
	if err != nil {
		t.Fatalf("Response failed: %v", err)
	}
	if reply.Status != domain.StatusSatisfied {
		t.Fatalf("expected satisfied, got %s", reply.Status)
	}
	if want := render(satisfiedTemplates[0], testPersona, testCompany); reply.Content != want {
		t.Errorf("expected %q, got %q", want, reply.Content)
	}
}

func TestResponseNeedsMoreAddsFollowUp(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{text: "Hmm, I think I get the general idea of that."}
	g := New(c, WithRand(fixedRand(0.99)), WithLogger(quietLogger()))
	reply, err := g.Response(context.Background(), testPersona, testCompany,
		[]domain.Message{msg(domain.KindUserSuggestion, "just try it")})
	if err != nil {
		t.Fatalf("Response failed: %v", err)
	}
	if reply.Status != domain.StatusNeedsMore {
		t.Fatalf("expected needs_more, got %s", reply.Status)
	}
	if want := c.text + followUps[4]; reply.Content != want {
		t.Errorf("expected %q, got %q", want, reply.Content)
	}
	if !strings.Contains(c.calls[0].System, `"just try it"`) {
		t.Errorf("expected suggestion embedded verbatim, got %q", c.calls[0].System)
	}
}

func TestResponseUsesLatestSuggestion(t *testing.T) {
	t.Parallel()

	c := &fakeCompleter{err: errors.New("offline")}
	g := New(c, WithRand(fixedRand(0)), WithLogger(quietLogger()))
	history := []domain.Message{
		msg(domain.KindUserSuggestion, "old advice"),
		msg(domain.KindPersonaResponse, "r"),
		msg(domain.KindUserSuggestion, "new advice"),
	}
	if _, err := g.Response(context.Background(), testPersona, testCompany, history); err != nil {
		t.Fatalf("Response failed: %v", err)
	}
	if !strings.Contains(c.calls[0].Prompt, "'new advice'") {
		t.Errorf("expected latest suggestion in prompt, got %q", c.calls[0].Prompt)
	}
}

func TestBackendName(t *testing.T) {
	t.Parallel()

	if got := New(nil).Backend(); got != "template" {
		t.Errorf("expected template backend, got %s", got)
	}
	if got := New(&fakeCompleter{}).Backend(); got != "fake" {
		t.Errorf("expected fake backend, got %s", got)
	}
}
