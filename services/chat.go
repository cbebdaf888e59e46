package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paper-atlas/models"
	"paper-atlas/providers/openai"
	"paper-atlas/storage"
)

// FallbackReply is returned when the completion endpoint answers without choices.
const FallbackReply = "Sorry, I could not generate a response. Please try again."

// Completer is an OpenAI-compatible chat completion endpoint.
type Completer interface {
	Complete(ctx context.Context, baseURL, apiKey string, messages []openai.Message) (string, error)
}

// Forwarder turns a paper and a conversation into a completion call with the user's own key.
type Forwarder struct {
	Users          storage.UserStore
	Sealer         *Sealer
	LLM            Completer
	DefaultBaseURL string
	Logger         *zap.Logger
	Metrics        *Metrics
}

// NewForwarder creates a Forwarder.
func NewForwarder(users storage.UserStore, sealer *Sealer, llm Completer, defaultBaseURL string, logger *zap.Logger, metrics *Metrics) *Forwarder {
	return &Forwarder{Users: users, Sealer: sealer, LLM: llm, DefaultBaseURL: defaultBaseURL, Logger: logger, Metrics: metrics}
}

// Respond sends the system prompt for paper followed by history and returns the reply text.
// history must already contain the new user turn.
func (f *Forwarder) Respond(ctx context.Context, userID uint, paper *models.Paper, history []models.ChatMessage) (string, error) {
	user, err := f.Users.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.HasAPIKey() {
		return "", ErrCredentialRequired
	}
	apiKey, err := f.Sealer.Open(user.EncryptedAPIKey)
	if err != nil {
		return "", fmt.Errorf("decrypt api key: %w", err)
	}
	baseURL := user.APIBaseURL
	if baseURL == "" {
		baseURL = f.DefaultBaseURL
	}

	msgs := make([]openai.Message, 0, len(history)+1)
	msgs = append(msgs, openai.Message{Role: "system", Content: SystemPrompt(paper)})
	for _, m := range history {
		msgs = append(msgs, openai.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := f.LLM.Complete(ctx, baseURL, apiKey, msgs)
	f.Metrics.CompletionCalls.WithLabelValues(outcome(err)).Inc()
	if errors.Is(err, openai.ErrNoChoices) {
		return FallbackReply, nil
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

// SystemPrompt describes paper to the model and asks it to stay grounded in it.
func SystemPrompt(p *models.Paper) string {
	authors := strings.Join(p.AuthorNames(), ", ")
	if authors == "" {
		authors = "Unknown"
	}
	year := "Unknown"
	if p.Year > 0 {
		year = fmt.Sprintf("%d", p.Year)
	}
	abstract := p.Abstract
	if abstract == "" {
		abstract = "No abstract available."
	}
	venue := p.Venue
	if venue == "" {
		venue = "Unknown"
	}

	var b strings.Builder
	b.WriteString("You are a research assistant helping the user understand a scientific paper.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "Authors: %s\n", authors)
	fmt.Fprintf(&b, "Year: %s\n", year)
	fmt.Fprintf(&b, "Venue: %s\n", venue)
	fmt.Fprintf(&b, "Citations: %d\n", p.CitationCount)
	fmt.Fprintf(&b, "Abstract: %s\n\n", abstract)
	b.WriteString("Base your answers on this paper. If the question goes beyond what the paper's metadata and abstract contain, " +
		"say so clearly and mark any general knowledge you add as such. Do not invent results, figures or quotes.")
	return b.String()
}

// ChatService manages chat sessions about papers.
type ChatService struct {
	Store     storage.ChatStore
	Papers    *PaperService
	Forwarder *Forwarder
	Logger    *zap.Logger
}

// NewChatService creates a ChatService.
func NewChatService(store storage.ChatStore, papers *PaperService, forwarder *Forwarder, logger *zap.Logger) *ChatService {
	return &ChatService{Store: store, Papers: papers, Forwarder: forwarder, Logger: logger}
}

// CreateSession opens a session about paperID. An empty title falls back to the paper title.
func (c *ChatService) CreateSession(ctx context.Context, userID uint, paperID, title string) (*models.ChatSession, error) {
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return nil, &ValidationError{Msg: "paperId is required"}
	}
	paper, err := c.Papers.Paper(ctx, paperID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = paper.Title
	}
	return c.Store.CreateChatSession(ctx, &models.ChatSession{UserID: userID, PaperID: paper.ExternalID, Title: title})
}

// ListSessions returns the sessions of userID, most recently active first.
func (c *ChatService) ListSessions(ctx context.Context, userID uint) ([]models.ChatSession, error) {
	return c.Store.ListChatSessions(ctx, userID)
}

func (c *ChatService) ownSession(ctx context.Context, userID, sessionID uint) (*models.ChatSession, error) {
	session, err := c.Store.GetChatSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

// Messages returns the ordered conversation of a session owned by userID.
func (c *ChatService) Messages(ctx context.Context, userID, sessionID uint) ([]models.ChatMessage, error) {
	if _, err := c.ownSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return c.Store.ListChatMessages(ctx, sessionID)
}

// SendMessage stores the user turn, forwards the conversation and stores the reply.
// The reply is only persisted after a successful completion.
func (c *ChatService) SendMessage(ctx context.Context, userID, sessionID uint, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Msg: "content is required"}
	}
	session, err := c.ownSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	paper, err := c.Papers.Paper(ctx, session.PaperID)
	if err != nil {
		return nil, err
	}

	if _, err := c.Store.CreateChatMessage(ctx, &models.ChatMessage{
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   content,
	}); err != nil {
		return nil, err
	}
	history, err := c.Store.ListChatMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	reply, err := c.Forwarder.Respond(ctx, userID, paper, history)
	if err != nil {
		return nil, err
	}
	return c.Store.CreateChatMessage(ctx, &models.ChatMessage{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   reply,
	})
}
