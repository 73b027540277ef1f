package usecases

import (
	"context"
	"strings"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
	"project_chatflow/internal/interfaces"
)

// Reply sources.
const (
	ReplyAutomation = "automation"
	ReplyAI         = "ai"
)

// ReplyResult is the reply chosen for an inbound message.
type ReplyResult struct {
	Text   string
	Source string
	RuleID int // set when Source is automation
}

// RuleSource provides a tenant's active automation rules.
type RuleSource interface {
	ActiveRules(ctx context.Context, tenantID int) ([]entities.AutomationRule, error)
}

// AISource provides a tenant's AI configuration and knowledge corpus.
type AISource interface {
	GetConfig(ctx context.Context, tenantID int) (*entities.AIConfig, error)
	ActiveDocs(ctx context.Context, tenantID int) ([]entities.KnowledgeDoc, error)
}

// HistorySource provides recent conversation history for prompt assembly.
type HistorySource interface {
	RecentText(ctx context.Context, conversationID, limit int) ([]entities.Message, error)
}

// ReplyService picks the automated reply for an inbound message: keyword
// automation first, AI generation as the fallback. It never fails the
// pipeline: any reply-side problem degrades to "no reply".
type ReplyService struct {
	rules     RuleSource
	ai        AISource
	history   HistorySource
	providers map[string]interfaces.AIClient
	log       *infrastructure.Logger
}

func NewReplyService(log *infrastructure.Logger, rules RuleSource, ai AISource, history HistorySource, providers map[string]interfaces.AIClient) *ReplyService {
	return &ReplyService{
		rules:     rules,
		ai:        ai,
		history:   history,
		providers: providers,
		log:       log.With("component", "reply_service"),
	}
}

// Reply returns the reply for the inbound text, or nil when nothing should
// be sent. The returned error is only for unexpected store failures.
func (s *ReplyService) Reply(ctx context.Context, tenant *entities.Tenant, conv *entities.Conversation, inboundText string) (*ReplyResult, error) {
	text := strings.TrimSpace(inboundText)
	if text == "" {
		return nil, nil
	}

	if res, err := s.matchRule(ctx, tenant.ID, text); err != nil {
		return nil, err
	} else if res != nil {
		return res, nil
	}

	return s.aiReply(ctx, tenant, conv)
}

// matchRule does a case-insensitive substring match of the inbound text
// against active rule keywords. When several keywords match, the longest
// keyword wins; equal lengths fall back to the lowest rule id.
func (s *ReplyService) matchRule(ctx context.Context, tenantID int, text string) (*ReplyResult, error) {
	rules, err := s.rules.ActiveRules(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(text)
	var best *entities.AutomationRule
	for i := range rules {
		rule := &rules[i]
		keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))
		if keyword == "" || !strings.Contains(lower, keyword) {
			continue
		}
		if best == nil || len(keyword) > len(strings.TrimSpace(best.Keyword)) {
			best = rule
		}
	}
	if best == nil {
		return nil, nil
	}
	return &ReplyResult{Text: best.Reply, Source: ReplyAutomation, RuleID: best.ID}, nil
}

// aiReply runs the AI fallback: active config, credentials and a non-empty
// history are all required, otherwise there is no reply.
func (s *ReplyService) aiReply(ctx context.Context, tenant *entities.Tenant, conv *entities.Conversation) (*ReplyResult, error) {
	cfg, err := s.ai.GetConfig(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.IsActive {
		return nil, nil
	}
	if cfg.APIKey == "" {
		s.log.Warn("ai active but no api key configured", "tenant", tenant.ID)
		return nil, nil
	}

	history, err := s.history.RecentText(ctx, conv.ID, cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}

	docs, err := s.ai.ActiveDocs(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}

	turns := make([]interfaces.ChatTurn, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Direction == entities.DirectionOutbound {
			role = "assistant"
		}
		turns = append(turns, interfaces.ChatTurn{Role: role, Content: m.Body})
	}

	provider, ok := s.providers[cfg.Provider]
	if !ok {
		provider = s.providers[entities.ProviderGemini]
	}
	if provider == nil {
		s.log.Warn("no ai provider available", "tenant", tenant.ID, "provider", cfg.Provider)
		return nil, nil
	}

	reply, err := provider.Generate(ctx, interfaces.AIRequest{
		History:      turns,
		SystemPrompt: BuildSystemPrompt(tenant, cfg, docs),
		APIKey:       cfg.APIKey,
		Model:        cfg.Model,
		Temperature:  cfg.Temperature,
	})
	if err != nil {
		// Provider trouble means no reply, never a pipeline failure.
		s.log.Warn("ai generation failed", "tenant", tenant.ID, "provider", cfg.Provider, "error", err)
		return nil, nil
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, nil
	}
	return &ReplyResult{Text: reply, Source: ReplyAI}, nil
}
