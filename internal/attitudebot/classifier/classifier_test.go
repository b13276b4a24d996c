package classifier

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RobinCoderZhao/attitudebot/pkg/llm"
)

var testModels = []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-1.0-pro"}

var quotaErr = &llm.APIError{Provider: "gemini", StatusCode: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}

// fakeEndpoint answers per model; models with no reply return quota errors.
type fakeEndpoint struct {
	replies map[string]string
	errs    map[string]error
	calls   []string
	prompts []string
	opened  []string
}

func (f *fakeEndpoint) factory(model string) (llm.Client, error) {
	f.opened = append(f.opened, model)
	return &fakeClient{endpoint: f, model: model}, nil
}

type fakeClient struct {
	endpoint *fakeEndpoint
	model    string
}

func (c *fakeClient) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	f := c.endpoint
	f.calls = append(f.calls, c.model)
	f.prompts = append(f.prompts, req.Messages[0].Content)
	if err, ok := f.errs[c.model]; ok {
		return nil, err
	}
	if reply, ok := f.replies[c.model]; ok {
		return &llm.Response{Content: reply, Model: c.model, TokensIn: 10, TokensOut: 3}, nil
	}
	return nil, quotaErr
}

func (c *fakeClient) Provider() llm.Provider { return "fake" }
func (c *fakeClient) Model() string          { return c.model }
func (c *fakeClient) Close() error           { return nil }

func newTestClassifier(t *testing.T, f *fakeEndpoint, opts ...Option) *Classifier {
	t.Helper()
	c, err := New(testModels, f.factory, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, (&fakeEndpoint{}).factory); err == nil {
		t.Fatal("expected error for empty model list")
	}
	if _, err := New(testModels, nil); err == nil {
		t.Fatal("expected error for nil factory")
	}
}

func TestClassify_Success(t *testing.T) {
	f := &fakeEndpoint{replies: map[string]string{testModels[0]: `{"result": "1"}`}}
	c := newTestClassifier(t, f)

	var st State
	res, err := c.Classify(context.Background(), &st, "Article text", "Instruction")
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != ProIntervention {
		t.Fatalf("expected pro-intervention, got %s", res.Label)
	}
	if res.Model != testModels[0] {
		t.Fatalf("expected %s, got %s", testModels[0], res.Model)
	}
	if st != (State{}) {
		t.Fatalf("expected untouched state, got %+v", st)
	}
	if f.prompts[0] != "Instruction\n\nArticle text" {
		t.Fatalf("unexpected prompt %q", f.prompts[0])
	}
}

func TestClassify_FallsBackOnQuota(t *testing.T) {
	f := &fakeEndpoint{replies: map[string]string{testModels[2]: `{"result": 0}`}}
	c := newTestClassifier(t, f)

	var st State
	res, err := c.Classify(context.Background(), &st, "text", "instr")
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != ProMarket || res.Model != testModels[2] {
		t.Fatalf("expected 0 from last model, got %d from %s", res.Label, res.Model)
	}
	if want := []string{testModels[0], testModels[1], testModels[2]}; strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("expected calls %v, got %v", want, f.calls)
	}
	if st.ActiveIndex != 2 || st.SaturationCount != 0 || st.Halted {
		t.Fatalf("unexpected state %+v", st)
	}

	// The pointer is sticky: the next article starts on the last model.
	f.calls = nil
	if _, err := c.Classify(context.Background(), &st, "text", "instr"); err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 1 || f.calls[0] != testModels[2] {
		t.Fatalf("expected single call to last model, got %v", f.calls)
	}
}

func TestClassify_HaltsAfterSaturation(t *testing.T) {
	f := &fakeEndpoint{}
	c := newTestClassifier(t, f)

	var st State
	_, err := c.Classify(context.Background(), &st, "text", "instr")
	if !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	if !errors.Is(err, ErrNoLabel) {
		t.Fatal("expected ErrHalted to wrap ErrNoLabel")
	}
	// Two switches, then six calls on the last model (five retries plus the
	// one that crosses the threshold).
	if len(f.calls) != 8 {
		t.Fatalf("expected 8 calls, got %d: %v", len(f.calls), f.calls)
	}
	for _, m := range f.calls[2:] {
		if m != testModels[2] {
			t.Fatalf("expected retries on last model, got %v", f.calls)
		}
	}
	if !st.Halted || st.ActiveIndex != 2 || st.SaturationCount != 6 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestClassify_HaltedSkipsEndpoint(t *testing.T) {
	f := &fakeEndpoint{replies: map[string]string{testModels[0]: `{"result": "1"}`}}
	c := newTestClassifier(t, f)

	st := State{Halted: true}
	if _, err := c.Classify(context.Background(), &st, "text", "instr"); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	if len(f.calls) != 0 || len(f.opened) != 0 {
		t.Fatalf("expected no endpoint activity, got calls=%v opened=%v", f.calls, f.opened)
	}
}

func TestClassify_SaturationCarriesAcrossArticles(t *testing.T) {
	f := &fakeEndpoint{}
	c := newTestClassifier(t, f, WithMaxQuotaErrors(5))

	st := State{ActiveIndex: 2, SaturationCount: 4}
	if _, err := c.Classify(context.Background(), &st, "text", "instr"); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected 2 calls before crossing the threshold, got %d", len(f.calls))
	}
}

func TestClassify_ZeroThreshold(t *testing.T) {
	f := &fakeEndpoint{}
	c := newTestClassifier(t, f, WithMaxQuotaErrors(0))

	var st State
	if _, err := c.Classify(context.Background(), &st, "text", "instr"); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted, got %v", err)
	}
	if len(f.calls) != 3 {
		t.Fatalf("expected one call per model, got %d", len(f.calls))
	}
}

func TestClassify_NonQuotaErrorLeavesState(t *testing.T) {
	f := &fakeEndpoint{errs: map[string]error{
		testModels[1]: &llm.APIError{Provider: "gemini", StatusCode: http.StatusBadRequest, Message: "bad request"},
	}}
	c := newTestClassifier(t, f)

	st := State{ActiveIndex: 1}
	_, err := c.Classify(context.Background(), &st, "text", "instr")
	if !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected wrapped APIError, got %v", err)
	}
	if st != (State{ActiveIndex: 1}) {
		t.Fatalf("expected unchanged state, got %+v", st)
	}
	if len(f.calls) != 1 {
		t.Fatalf("expected a single call, got %d", len(f.calls))
	}
}

func TestClassify_FactoryError(t *testing.T) {
	c, err := New(testModels, func(model string) (llm.Client, error) {
		return nil, errors.New("no credentials")
	})
	if err != nil {
		t.Fatal(err)
	}
	var st State
	if _, err := c.Classify(context.Background(), &st, "text", "instr"); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
	if st != (State{}) {
		t.Fatalf("expected unchanged state, got %+v", st)
	}
}

func TestClassify_ParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  error
	}{
		{"prose", "I think it is 1", ErrMalformedResponse},
		{"fenced", "```json\n{\"result\": \"1\"}\n```", ErrMalformedResponse},
		{"out of range", `{"result": "2"}`, ErrInvalidLabel},
		{"missing key", `{"answer": "1"}`, ErrInvalidLabel},
		{"boolean", `{"result": true}`, ErrInvalidLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeEndpoint{replies: map[string]string{testModels[0]: tt.reply}}
			c := newTestClassifier(t, f)
			var st State
			res, err := c.Classify(context.Background(), &st, "text", "instr")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if res.Raw != tt.reply {
				t.Fatalf("expected raw output to be kept, got %q", res.Raw)
			}
			if st != (State{}) {
				t.Fatalf("expected unchanged state, got %+v", st)
			}
		})
	}
}

func TestClassify_Truncates(t *testing.T) {
	f := &fakeEndpoint{replies: map[string]string{testModels[0]: `{"result": "0"}`}}
	c := newTestClassifier(t, f, WithMaxContentChars(5))

	var st State
	if _, err := c.Classify(context.Background(), &st, "héllo world", "I"); err != nil {
		t.Fatal(err)
	}
	if f.prompts[0] != "I\n\nhéllo" {
		t.Fatalf("expected truncated prompt, got %q", f.prompts[0])
	}
}

func TestClassify_ReusesClientUntilSwitch(t *testing.T) {
	f := &fakeEndpoint{replies: map[string]string{testModels[1]: `{"result": "1"}`}}
	c := newTestClassifier(t, f)

	var st State
	for i := 0; i < 3; i++ {
		if _, err := c.Classify(context.Background(), &st, "text", "instr"); err != nil {
			t.Fatal(err)
		}
	}
	if len(f.opened) != 2 {
		t.Fatalf("expected one client per visited model, got %v", f.opened)
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"result": "1"}`, `{"result": "1"}`},
		{`"result": "1"`, `{"result": "1"}`},
		{`{"result": "1"`, `{"result": "1"}`},
		{`"result": "1"}`, `{"result": "1"}`},
		{"  {\"result\": 0}\n", `{"result": 0}`},
		{"", "{}"},
		{"```json\n{\"result\": \"1\"}\n```", "{```json\n{\"result\": \"1\"}\n```}"},
	}

	for _, tt := range tests {
		if got := RepairJSON(tt.in); got != tt.want {
			t.Errorf("RepairJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		raw     string
		want    Label
		wantErr error
	}{
		{`{"result": "0"}`, ProMarket, nil},
		{`{"result": "1"}`, ProIntervention, nil},
		{`{"result": 0}`, ProMarket, nil},
		{`{"result": 1}`, ProIntervention, nil},
		{`"result": "1"`, ProIntervention, nil},
		{`{"result": "1"`, ProIntervention, nil},
		{`{"result": " 1"}`, 0, ErrInvalidLabel},
		{`{"result": 0.5}`, 0, ErrInvalidLabel},
		{`{"result": null}`, 0, ErrInvalidLabel},
		{`{}`, 0, ErrInvalidLabel},
		{``, 0, ErrInvalidLabel},
		{`{"result": "1"} extra`, 0, ErrMalformedResponse},
		{`not json`, 0, ErrMalformedResponse},
	}

	for _, tt := range tests {
		got, err := ParseLabel(tt.raw)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseLabel(%q): expected %v, got %v", tt.raw, tt.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLabel(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLabel(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"日本語テキスト", 3, "日本語"},
		{"hello", 0, "hello"},
		{"", 3, ""},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
