package session

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VijayarajParamasivam/PaperMind/chat"
	"github.com/VijayarajParamasivam/PaperMind/counter"
	"github.com/VijayarajParamasivam/PaperMind/document"
	"github.com/VijayarajParamasivam/PaperMind/extractor"
	"github.com/VijayarajParamasivam/PaperMind/index"
	"github.com/VijayarajParamasivam/PaperMind/llm"
)

type fakeStore struct {
	units    map[string][]document.TextUnit
	addErr   error
	queryErr error
	dropped  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{units: make(map[string][]document.TextUnit)}
}

func (s *fakeStore) Drop(_ context.Context, name string) error {
	s.dropped++
	delete(s.units, name)
	return nil
}

func (s *fakeStore) Create(_ context.Context, name string) error {
	s.units[name] = nil
	return nil
}

func (s *fakeStore) Add(_ context.Context, name string, units []document.TextUnit) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.units[name] = append(s.units[name], units...)
	return nil
}

func (s *fakeStore) Query(_ context.Context, name, _ string, k int) ([]document.TextUnit, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	units := s.units[name]
	if len(units) > k {
		units = units[:k]
	}
	return units, nil
}

var _ index.Store = (*fakeStore)(nil)

type fakeLLM struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

var _ llm.Client = (*fakeLLM)(nil)

type harness struct {
	sess    *Session
	store   *fakeStore
	model   *fakeLLM
	counter *counter.MemoryStore

	extractCalls int
	extractErr   error
	pages        []string
}

func newHarness(t *testing.T, pages []string) *harness {
	t.Helper()

	h := &harness{
		store:   newFakeStore(),
		model:   &fakeLLM{answer: "Beta is on page 2."},
		counter: counter.NewMemoryStore(),
		pages:   pages,
	}

	extract := func(path string, progress extractor.ProgressFunc) ([]document.TextUnit, error) {
		h.extractCalls++
		if h.extractErr != nil {
			return nil, h.extractErr
		}
		if progress != nil {
			for i := range h.pages {
				progress(i+1, len(h.pages))
			}
		}
		return extractor.BuildUnits(h.pages), nil
	}

	newModel := func(_ context.Context, credential string) (llm.Client, error) {
		if credential == "malformed" {
			return nil, errors.New("malformed credential")
		}
		return h.model, nil
	}

	builder := index.NewBuilder(h.store, log.New(io.Discard, "", 0))
	h.sess = New(extract, builder, newModel, h.counter, log.New(io.Discard, "", 0), Options{
		Collection:    "pdf_collection",
		RetrievalK:    3,
		HistoryWindow: 6,
	})
	return h
}

func tempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustProcess(t *testing.T, h *harness) {
	t.Helper()
	if err := h.sess.Submit("valid-key", tempPDF(t)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.sess.Process(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}
}

func TestSubmitRequiresCredentialAndFile(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})

	if err := h.sess.Submit("", tempPDF(t)); !errors.Is(err, ErrCredential) {
		t.Fatalf("expected ErrCredential, got %v", err)
	}
	if h.sess.Phase() != PhaseEmpty {
		t.Fatalf("rejected submit must stay empty, got %s", h.sess.Phase())
	}
	if h.extractCalls != 0 || h.store.dropped != 0 {
		t.Fatal("rejected submit must not touch any collaborator")
	}

	if err := h.sess.Submit("key", ""); !errors.Is(err, ErrCredential) {
		t.Fatalf("expected ErrCredential for missing file, got %v", err)
	}
}

func TestProcessBuildsCollectionAndReachesReady(t *testing.T) {
	h := newHarness(t, []string{"Alpha", "Beta", "Gamma"})
	mustProcess(t, h)

	if h.sess.Phase() != PhaseReady {
		t.Fatalf("expected ready, got %s", h.sess.Phase())
	}

	units := h.store.units["pdf_collection"]
	if len(units) != 3 {
		t.Fatalf("expected 3 indexed units, got %d", len(units))
	}
	for i, want := range []string{"id1", "id2", "id3"} {
		if units[i].ID != want {
			t.Fatalf("unit %d: expected %q, got %q", i, want, units[i].ID)
		}
	}

	status := h.sess.Status()
	if status.Pages != 3 || status.Progress != 100 {
		t.Fatalf("unexpected status after processing: %+v", status)
	}
}

func TestProcessReplacesPriorCollection(t *testing.T) {
	h := newHarness(t, []string{"Alpha", "Beta"})
	mustProcess(t, h)

	h.sess.Clear(context.Background())
	h.pages = []string{"Delta"}
	mustProcess(t, h)

	units := h.store.units["pdf_collection"]
	if len(units) != 1 || units[0].Text != "Delta" {
		t.Fatalf("new document must fully replace the prior collection, got %v", units)
	}
}

func TestProcessCredentialFailureResets(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})
	path := tempPDF(t)
	if err := h.sess.Submit("malformed", path); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := h.sess.Process(context.Background())
	if !errors.Is(err, ErrCredential) {
		t.Fatalf("expected ErrCredential, got %v", err)
	}
	if h.sess.Phase() != PhaseEmpty {
		t.Fatalf("failed processing must reset to empty, got %s", h.sess.Phase())
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("temp document must be discarded on reset")
	}
}

func TestProcessExtractionFailureResets(t *testing.T) {
	h := newHarness(t, nil)
	h.extractErr = errors.New("not a pdf")

	if err := h.sess.Submit("key", tempPDF(t)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.sess.Process(context.Background()); !errors.Is(err, ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
	if h.sess.Phase() != PhaseEmpty {
		t.Fatalf("expected empty after extraction failure, got %s", h.sess.Phase())
	}
	if len(h.store.units) != 0 {
		t.Fatal("no collection may survive a failed extraction")
	}
}

func TestProcessIndexFailureResets(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})
	h.store.addErr = errors.New("insert exploded")

	if err := h.sess.Submit("key", tempPDF(t)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.sess.Process(context.Background()); !errors.Is(err, ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
	if h.sess.Phase() != PhaseEmpty {
		t.Fatalf("expected empty after index failure, got %s", h.sess.Phase())
	}
}

func TestAskComposesPromptAndCountsAnswer(t *testing.T) {
	h := newHarness(t, []string{"Alpha", "Beta", "Gamma"})
	mustProcess(t, h)

	answer, err := h.sess.Ask(context.Background(), "What is on page 2?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "Beta is on page 2." {
		t.Fatalf("unexpected answer: %q", answer)
	}

	if len(h.model.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(h.model.prompts))
	}
	prompt := h.model.prompts[0]
	ctxIdx := strings.Index(prompt, "PDF Context:")
	if ctxIdx < 0 {
		t.Fatalf("prompt missing context section:\n%s", prompt)
	}
	if !strings.Contains(prompt[ctxIdx:], "Alpha") {
		t.Fatalf("retrieved text must follow the context label:\n%s", prompt)
	}
	if !strings.Contains(prompt, "User: What is on page 2?") {
		t.Fatalf("prompt missing the user question:\n%s", prompt)
	}

	transcript := h.sess.Status().Transcript
	if len(transcript) != 2 {
		t.Fatalf("expected 2 transcript turns, got %d", len(transcript))
	}
	if transcript[0].Role != chat.RoleUser || transcript[1].Role != chat.RoleAssistant {
		t.Fatalf("unexpected transcript roles: %+v", transcript)
	}

	answered, _ := h.counter.Read(context.Background(), counter.QuestionsAnswered)
	if answered != 1 {
		t.Fatalf("counter must increment exactly once per answer, got %d", answered)
	}
}

func TestAskWindowsHistoryToSixTurns(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})
	mustProcess(t, h)

	for i := 0; i < 5; i++ {
		if _, err := h.sess.Ask(context.Background(), "again?"); err != nil {
			t.Fatalf("ask %d: %v", i, err)
		}
	}

	// 5 answered questions put 8 prior turns in the transcript before the
	// last ask; its prompt may carry at most 6 of them.
	last := h.model.prompts[len(h.model.prompts)-1]
	if got := strings.Count(last, "\nAssistant: "); got > 3 {
		t.Fatalf("history window exceeded: %d assistant lines in\n%s", got, last)
	}
}

func TestAskGenerationFailureApologizesAndResets(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})
	mustProcess(t, h)
	h.model.err = errors.New("endpoint down")

	answer, err := h.sess.Ask(context.Background(), "anything?")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if answer != Apology {
		t.Fatalf("expected apology substitute, got %q", answer)
	}
	if h.sess.Phase() != PhaseEmpty {
		t.Fatalf("generation failure must reset the session, got %s", h.sess.Phase())
	}

	answered, _ := h.counter.Read(context.Background(), counter.QuestionsAnswered)
	if answered != 0 {
		t.Fatalf("counter must not move on the failure path, got %d", answered)
	}
}

func TestAskEmptyAnswerSubstitutesApologyWithoutReset(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})
	mustProcess(t, h)
	h.model.answer = "   "

	answer, err := h.sess.Ask(context.Background(), "anything?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != Apology {
		t.Fatalf("expected apology for an empty answer, got %q", answer)
	}
	if h.sess.Phase() != PhaseReady {
		t.Fatalf("an empty-but-successful answer must not reset, got %s", h.sess.Phase())
	}
}

func TestAskOnlyValidWhenReady(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})
	if _, err := h.sess.Ask(context.Background(), "too early?"); err == nil {
		t.Fatal("expected error asking from the empty phase")
	}
}

func TestStatusReadableWhileProcessing(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})

	started := make(chan struct{})
	release := make(chan struct{})
	h.sess.extract = func(path string, progress extractor.ProgressFunc) ([]document.TextUnit, error) {
		close(started)
		<-release
		if progress != nil {
			progress(1, 1)
		}
		return extractor.BuildUnits([]string{"Alpha"}), nil
	}

	if err := h.sess.Submit("key", tempPDF(t)); err != nil {
		t.Fatalf("submit: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- h.sess.Process(context.Background())
	}()

	<-started
	status := h.sess.Status()
	if status.Phase != PhaseProcessing {
		t.Fatalf("a poll during extraction must see the processing phase, got %s", status.Phase)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("process: %v", err)
	}
	if h.sess.Phase() != PhaseReady {
		t.Fatalf("expected ready after release, got %s", h.sess.Phase())
	}
}

func TestClearResetsEverythingAndAllowsResubmit(t *testing.T) {
	h := newHarness(t, []string{"Alpha"})
	mustProcess(t, h)
	if _, err := h.sess.Ask(context.Background(), "hello?"); err != nil {
		t.Fatalf("ask: %v", err)
	}

	h.sess.Clear(context.Background())

	status := h.sess.Status()
	if status.Phase != PhaseEmpty || status.Pages != 0 || len(status.Transcript) != 0 {
		t.Fatalf("clear must leave an empty session, got %+v", status)
	}
	if _, ok := h.store.units["pdf_collection"]; ok {
		t.Fatal("clear must drop the collection")
	}

	mustProcess(t, h)
	if h.sess.Phase() != PhaseReady {
		t.Fatalf("submit after clear must succeed independently, got %s", h.sess.Phase())
	}
}
