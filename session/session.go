package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/VijayarajParamasivam/PaperMind/chat"
	"github.com/VijayarajParamasivam/PaperMind/counter"
	"github.com/VijayarajParamasivam/PaperMind/document"
	"github.com/VijayarajParamasivam/PaperMind/extractor"
	"github.com/VijayarajParamasivam/PaperMind/index"
	"github.com/VijayarajParamasivam/PaperMind/llm"
)

type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhaseProcessing Phase = "processing"
	PhaseReady      Phase = "ready"
)

// Apology is substituted as the answer when generation fails or produces
// nothing usable.
const Apology = "Sorry, I couldn't find an answer in the PDF."

type ExtractFunc func(path string, progress extractor.ProgressFunc) ([]document.TextUnit, error)

type ModelFactory func(ctx context.Context, credential string) (llm.Client, error)

type Options struct {
	Collection    string
	RetrievalK    int
	HistoryWindow int
}

// Session drives the upload-through-chat lifecycle:
// empty -> processing -> ready, looping on ready for each question, back to
// empty on clear or on any failure. It owns the handles to the active
// document, collection and transcript. Mutating operations are strictly
// sequential; callers serialize them (the HTTP layer holds a lock, the CLI
// is linear). Status snapshots may be read concurrently while an operation
// runs, so the snapshot fields sit behind their own mutex.
type Session struct {
	extract  ExtractFunc
	builder  *index.Builder
	newModel ModelFactory
	counter  counter.Store
	logger   *log.Logger
	opts     Options

	credential string
	pdfPath    string
	model      llm.Client

	// mu guards the snapshot fields below; progress is reported from inside
	// a running Process while Status is being polled.
	mu         sync.Mutex
	phase      Phase
	doc        *document.Document
	transcript []chat.Turn
	progress   int
}

// Status is a read-only snapshot of the session for display.
type Status struct {
	Phase      Phase       `json:"phase"`
	Progress   int         `json:"progress"`
	Pages      int         `json:"pages"`
	Transcript []chat.Turn `json:"transcript"`
}

func New(extract ExtractFunc, builder *index.Builder, newModel ModelFactory, counterStore counter.Store, logger *log.Logger, opts Options) *Session {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Collection == "" {
		opts.Collection = "pdf_collection"
	}
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = 3
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 6
	}

	return &Session{
		extract:  extract,
		builder:  builder,
		newModel: newModel,
		counter:  counterStore,
		logger:   logger,
		opts:     opts,
		phase:    PhaseEmpty,
	}
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Phase:      s.phase,
		Progress:   s.progress,
		Transcript: append([]chat.Turn(nil), s.transcript...),
	}
	if s.doc != nil {
		status.Pages = s.doc.Pages
	}
	return status
}

// Submit accepts the credential and document for a new session. Valid only
// from the empty phase; nothing is validated against collaborators here, so
// a rejection leaves no side effects at all.
func (s *Session) Submit(credential, filePath string) error {
	if phase := s.Phase(); phase != PhaseEmpty {
		return fmt.Errorf("submit is only valid from the empty phase, session is %s", phase)
	}

	credential = strings.TrimSpace(credential)
	if credential == "" || filePath == "" {
		return fmt.Errorf("%w: please provide both an API key and a PDF file", ErrCredential)
	}

	s.credential = credential
	s.pdfPath = filePath

	s.mu.Lock()
	s.phase = PhaseProcessing
	s.progress = 0
	s.mu.Unlock()
	return nil
}

// Process runs extraction and the index rebuild synchronously. On success the
// session holds the document, collection and model handles and is ready to
// chat. On any failure all session state is discarded, including the
// credential: the user must resubmit both inputs.
func (s *Session) Process(ctx context.Context) error {
	if phase := s.Phase(); phase != PhaseProcessing {
		return fmt.Errorf("process is only valid from the processing phase, session is %s", phase)
	}

	model, err := s.newModel(ctx, s.credential)
	if err != nil {
		s.logger.Printf("model setup failed: %v", err)
		s.reset()
		return fmt.Errorf("%w: %v", ErrCredential, err)
	}

	units, err := s.extract(s.pdfPath, func(page, total int) {
		if total > 0 {
			s.setProgress(page * 90 / total)
		}
	})
	if err != nil {
		s.logger.Printf("extraction failed for %s: %v", s.pdfPath, err)
		s.reset()
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	s.setProgress(95)
	if err := s.builder.Rebuild(ctx, s.opts.Collection, units); err != nil {
		s.logger.Printf("index rebuild failed: %v", err)
		s.reset()
		return fmt.Errorf("%w: %v", ErrIndex, err)
	}

	doc := &document.Document{
		ID:    uuid.NewString(),
		Path:  s.pdfPath,
		Pages: len(units),
	}
	s.model = model

	s.mu.Lock()
	s.doc = doc
	s.phase = PhaseReady
	s.progress = 100
	s.mu.Unlock()

	s.logger.Printf("document %s processed: %d pages indexed into %q", doc.ID, doc.Pages, s.opts.Collection)
	return nil
}

// Ask answers one question from the active document. Retrieval feeds the
// context section, the last turns of the transcript feed the history section,
// and the composed prompt goes to the generation endpoint. A failed
// generation call substitutes the apology as the answer and resets the whole
// session; the returned error still carries ErrGeneration for callers that
// care. The global counter moves only on the success path.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	if phase := s.Phase(); phase != PhaseReady {
		return "", fmt.Errorf("ask is only valid from the ready phase, session is %s", phase)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question cannot be empty")
	}

	units, err := s.builder.Retrieve(ctx, s.opts.Collection, question, s.opts.RetrievalK)
	if err != nil {
		s.logger.Printf("retrieval failed: %v", err)
		s.reset()
		return "", fmt.Errorf("%w: %v", ErrIndex, err)
	}

	texts := make([]string, len(units))
	for i, unit := range units {
		texts[i] = unit.Text
	}

	s.mu.Lock()
	window := chat.HistoryWindow(s.transcript, s.opts.HistoryWindow)
	s.mu.Unlock()
	prompt := chat.ComposePrompt(chat.AssembleContext(texts), chat.FormatHistory(window), question)

	answer, err := s.model.Generate(ctx, prompt)
	if err != nil {
		s.logger.Printf("generation failed, resetting session: %v", err)
		s.reset()
		return Apology, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = Apology
	}

	s.mu.Lock()
	s.transcript = append(s.transcript,
		chat.Turn{Role: chat.RoleUser, Message: question},
		chat.Turn{Role: chat.RoleAssistant, Message: answer},
	)
	s.mu.Unlock()
	s.bumpCounter(ctx)

	return answer, nil
}

// Clear tears the session down: the temp document file is deleted, the
// collection is dropped and every handle is discarded. Destructive and
// unconditional.
func (s *Session) Clear(ctx context.Context) {
	if s.builder != nil {
		if err := s.builder.Drop(ctx, s.opts.Collection); err != nil {
			s.logger.Printf("drop collection on clear: %v", err)
		}
	}
	s.reset()
}

func (s *Session) reset() {
	if s.pdfPath != "" {
		if err := os.Remove(s.pdfPath); err != nil && !os.IsNotExist(err) {
			s.logger.Printf("remove temp document: %v", err)
		}
	}
	s.credential = ""
	s.pdfPath = ""
	s.model = nil

	s.mu.Lock()
	s.phase = PhaseEmpty
	s.doc = nil
	s.transcript = nil
	s.progress = 0
	s.mu.Unlock()
}

func (s *Session) setProgress(progress int) {
	s.mu.Lock()
	s.progress = progress
	s.mu.Unlock()
}

// bumpCounter is a plain read-then-write; increments lost to concurrent
// sessions are accepted. Counter failures never fail an answered question.
func (s *Session) bumpCounter(ctx context.Context) {
	if s.counter == nil {
		return
	}
	value, err := s.counter.Read(ctx, counter.QuestionsAnswered)
	if err != nil {
		s.logger.Printf("read counter: %v", err)
		return
	}
	if err := s.counter.Write(ctx, counter.QuestionsAnswered, value+1); err != nil {
		s.logger.Printf("write counter: %v", err)
	}
}
