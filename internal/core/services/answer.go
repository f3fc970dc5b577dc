package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// Context labels for answers that are not scoped retrievals.
const (
	ContextListing      = "document listing"
	ContextConversation = "conversation"
)

// errInternal stands in for a recovered panic; the details are only logged.
var errInternal = errors.New("an internal error occurred")

// NoDocumentsMessage is the listing answer for an empty index.
const NoDocumentsMessage = "No documents are currently indexed."

// AnswerConfig holds the answering parameters taken from settings.
type AnswerConfig struct {
	RAG  domain.RAGSettings
	Chat driven.ChatOptions
}

// AnswerConfigFrom builds an AnswerConfig from application settings.
func AnswerConfigFrom(s domain.Settings) AnswerConfig {
	return AnswerConfig{
		RAG: s.RAG,
		Chat: driven.ChatOptions{
			MaxTokens:   s.LLM.MaxTokens,
			Temperature: s.LLM.Temperature,
		},
	}
}

// AnswerService answers questions with retrieval-augmented generation.
type AnswerService struct {
	sessions *SessionRegistry
	resolver *IntentResolver
	index    *IndexService
	llm      driven.Generator
	prompts  driven.PromptStore
	config   AnswerConfig
}

// NewAnswerService creates an answering service.
// index and llm are optional; their absence is reported in the answer rather than as an error.
func NewAnswerService(
	sessions *SessionRegistry,
	resolver *IntentResolver,
	index *IndexService,
	llm driven.Generator,
	prompts driven.PromptStore,
	config AnswerConfig,
) *AnswerService {
	if config.RAG.TopK <= 0 {
		config.RAG.TopK = domain.DefaultSettings().RAG.TopK
	}
	if config.RAG.ExcerptLength <= 0 {
		config.RAG.ExcerptLength = domain.DefaultSettings().RAG.ExcerptLength
	}
	return &AnswerService{
		sessions: sessions,
		resolver: resolver,
		index:    index,
		llm:      llm,
		prompts:  prompts,
		config:   config,
	}
}

// Ask answers a question for a conversation. It always returns an answer;
// failures are described in an error-mode answer.
// A panic in an adapter is logged and also answered in error mode.
func (s *AnswerService) Ask(ctx context.Context, conversationID, question string) (ans *domain.Answer) {
	logger.Section("Answer")
	question = strings.TrimSpace(question)
	if question == "" {
		return errorAnswer(question, "", fmt.Errorf("%w: the question is empty", domain.ErrInvalidInput))
	}

	label := ""
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Answer panicked for conversation %q: %v\n%s", conversationID, r, debug.Stack())
			ans = errorAnswer(question, label, errInternal)
		}
	}()

	sc := s.sessions.Get(conversationID)
	current, _ := sc.Current()
	res := s.resolver.Resolve(question, current)
	label = res.Scope.Label()
	logger.Debug("Conversation %q: rule=%s intent=%s scope=%s", sc.ID(), res.Rule, res.Intent, res.Scope.Label())

	var (
		answer *domain.Answer
		err    error
	)
	switch {
	case res.Intent == domain.IntentListDocuments:
		answer, err = s.listDocuments(ctx, question, current)
	case !s.index.Available():
		if s.config.RAG.RequireVectorStore {
			err = domain.ErrNoVectorStore
		} else {
			answer, err = s.converse(ctx, sc, question)
		}
	default:
		answer, err = s.retrieveAndAnswer(ctx, sc, question, res.Scope)
	}
	if err != nil {
		logger.Warn("Answer failed for conversation %q: %v", sc.ID(), err)
		return errorAnswer(question, res.Scope.Label(), err)
	}

	sc.Append(question, answer.Answer)
	return answer
}

// History returns the conversation's memory.
func (s *AnswerService) History(conversationID string) []domain.Exchange {
	return s.sessions.Get(conversationID).History()
}

// ClearHistory empties the conversation's memory.
func (s *AnswerService) ClearHistory(conversationID string) {
	s.sessions.Get(conversationID).ClearHistory()
}

func (s *AnswerService) listDocuments(ctx context.Context, question, current string) (*domain.Answer, error) {
	groups, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return &domain.Answer{
		Answer:   FormatListing(groups, current),
		Sources:  []domain.Source{},
		Question: question,
		Mode:     domain.AnswerModeListing,
		Context:  ContextListing,
	}, nil
}

func (s *AnswerService) converse(ctx context.Context, sc *SessionContext, question string) (*domain.Answer, error) {
	system, err := s.systemPrompt(driven.PromptConversationSystem)
	if err != nil {
		return nil, err
	}
	text, err := s.chat(ctx, system, sc.History(), question)
	if err != nil {
		return nil, err
	}
	return &domain.Answer{
		Answer:   text,
		Sources:  []domain.Source{},
		Question: question,
		Mode:     domain.AnswerModeConversation,
		Context:  ContextConversation,
	}, nil
}

func (s *AnswerService) retrieveAndAnswer(
	ctx context.Context, sc *SessionContext, question string, scope domain.Scope,
) (*domain.Answer, error) {
	results, err := s.index.Search(ctx, question, s.config.RAG.TopK, scope)
	if err != nil {
		return nil, err
	}
	logger.Debug("Retrieved %d chunks from %s", len(results), scope.Label())

	system, err := s.systemPrompt(driven.PromptRAGSystem)
	if err != nil {
		return nil, err
	}
	text, err := s.chat(ctx, system+"\n\n"+FormatContext(results), sc.History(), question)
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		Answer:   text,
		Sources:  s.sources(results),
		Question: question,
		Mode:     domain.AnswerModeRAG,
		Context:  scope.Label(),
	}, nil
}

func (s *AnswerService) systemPrompt(name string) (string, error) {
	if s.prompts == nil {
		return "", fmt.Errorf("prompt %s: no prompt store", name)
	}
	template, err := s.prompts.Load(name)
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", name, err)
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, s.config.RAG.AnswerLanguage), nil
	}
	return template, nil
}

func (s *AnswerService) chat(ctx context.Context, system string, memory []domain.Exchange, question string) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	messages := make([]driven.ChatMessage, 0, 2*len(memory)+2)
	messages = append(messages, driven.ChatMessage{Role: driven.RoleSystem, Content: system})
	for _, ex := range memory {
		messages = append(messages,
			driven.ChatMessage{Role: driven.RoleUser, Content: ex.Question},
			driven.ChatMessage{Role: driven.RoleAssistant, Content: ex.Answer},
		)
	}
	messages = append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: question})

	text, err := s.llm.Chat(ctx, messages, s.config.Chat)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrModelInvocation, err)
	}
	return strings.TrimSpace(text), nil
}

func (s *AnswerService) sources(results []domain.RetrievalResult) []domain.Source {
	out := make([]domain.Source, len(results))
	for i, r := range results {
		out[i] = domain.Source{
			Text:       Excerpt(r.Chunk.Content, s.config.RAG.ExcerptLength),
			Filename:   r.Chunk.Filename,
			Source:     r.Chunk.Source,
			SourceType: r.Chunk.SourceType,
			SessionTag: r.Chunk.SessionTag,
			Page:       r.Chunk.EstimatedPage,
			Rank:       r.Rank,
			Score:      r.Score,
		}
	}
	return out
}

// FormatContext renders retrieved chunks as numbered excerpts for the prompt.
func FormatContext(results []domain.RetrievalResult) string {
	if len(results) == 0 {
		return "Context:\n(no matching excerpts were found)"
	}
	var b strings.Builder
	b.WriteString("Context:")
	for _, r := range results {
		page := r.Chunk.EstimatedPage
		if page < 1 {
			page = 1
		}
		fmt.Fprintf(&b, "\n\n[%d] (%s, page %d)\n%s", r.Rank, r.Chunk.Filename, page, r.Chunk.Content)
	}
	return b.String()
}

// FormatListing renders document groups: permanent documents first, then the
// current session, then any other sessions.
func FormatListing(groups []domain.DocumentGroup, current string) string {
	if len(groups) == 0 {
		return NoDocumentsMessage
	}

	var permanent, session, others []domain.DocumentGroup
	for _, g := range groups {
		switch {
		case g.SessionTag == "":
			permanent = append(permanent, g)
		case current != "" && g.SessionTag == current:
			session = append(session, g)
		default:
			others = append(others, g)
		}
	}

	var b strings.Builder
	b.WriteString("Indexed documents:")
	writeGroup := func(title string, gs []domain.DocumentGroup) {
		if len(gs) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n\n%s:", title)
		for _, g := range gs {
			fmt.Fprintf(&b, "\n- %s (%s, %d chunks)", g.Filename, g.SourceType, g.ChunkCount)
		}
	}
	writeGroup("Permanent documents", permanent)
	writeGroup("Current session "+current, session)
	for _, g := range others {
		writeGroup("Session "+g.SessionTag, []domain.DocumentGroup{g})
	}
	return b.String()
}

// Excerpt truncates text to at most limit runes, appending "..." when cut.
func Excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

func errorAnswer(question, label string, err error) *domain.Answer {
	return &domain.Answer{
		Answer:   describeFailure(err),
		Sources:  []domain.Source{},
		Question: question,
		Mode:     domain.AnswerModeError,
		Context:  label,
	}
}

// describeFailure turns an answering error into a sentence for the caller.
func describeFailure(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "Please provide a question."
	case errors.Is(err, domain.ErrNoVectorStore):
		return "No document index is configured, so questions cannot be answered from documents."
	case errors.Is(err, domain.ErrEmbeddingFailure), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return fmt.Sprintf("The documents could not be searched: %v. Please try again.", err)
	case errors.Is(err, domain.ErrLLMUnavailable):
		return "No language model is configured. Set llm.provider and an API key, then try again."
	case errors.Is(err, domain.ErrRateLimited):
		return "The language model is rate limited. Please try again shortly."
	case errors.Is(err, domain.ErrModelInvocation):
		return fmt.Sprintf("The language model could not answer: %v", err)
	default:
		return fmt.Sprintf("An error occurred while answering: %v", err)
	}
}
