package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
	"project_chatflow/internal/interfaces"
)

type fakeRuleSource struct {
	rules []entities.AutomationRule
	err   error
}

func (f *fakeRuleSource) ActiveRules(ctx context.Context, tenantID int) ([]entities.AutomationRule, error) {
	return f.rules, f.err
}

type fakeAISource struct {
	cfg  *entities.AIConfig
	docs []entities.KnowledgeDoc
}

func (f *fakeAISource) GetConfig(ctx context.Context, tenantID int) (*entities.AIConfig, error) {
	return f.cfg, nil
}

func (f *fakeAISource) ActiveDocs(ctx context.Context, tenantID int) ([]entities.KnowledgeDoc, error) {
	return f.docs, nil
}

type fakeHistorySource struct {
	history []entities.Message
}

func (f *fakeHistorySource) RecentText(ctx context.Context, conversationID, limit int) ([]entities.Message, error) {
	return f.history, nil
}

type fakeAIClient struct {
	reply   string
	err     error
	lastReq interfaces.AIRequest
}

func (f *fakeAIClient) Generate(ctx context.Context, req interfaces.AIRequest) (string, error) {
	f.lastReq = req
	return f.reply, f.err
}

func newTestReplyService(rules *fakeRuleSource, ai *fakeAISource, history *fakeHistorySource, client *fakeAIClient) *ReplyService {
	providers := map[string]interfaces.AIClient{}
	if client != nil {
		providers[entities.ProviderGemini] = client
	}
	return NewReplyService(infrastructure.NewNopLogger(), rules, ai, history, providers)
}

var testTenant = &entities.Tenant{ID: 1, Name: "Toko Berkah"}
var testConv = &entities.Conversation{ID: 10, TenantID: 1, Channel: entities.ChannelWhatsApp}

func TestReplyKeywordMatchCaseInsensitive(t *testing.T) {
	rules := &fakeRuleSource{rules: []entities.AutomationRule{
		{ID: 1, Keyword: "bonjour", Reply: "Bonjour! Comment puis-je vous aider?"},
	}}
	svc := newTestReplyService(rules, &fakeAISource{}, &fakeHistorySource{}, nil)

	res, err := svc.Reply(context.Background(), testTenant, testConv, "Bonjour, vous livrez?")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, ReplyAutomation, res.Source)
	assert.Equal(t, 1, res.RuleID)
	assert.Equal(t, "Bonjour! Comment puis-je vous aider?", res.Text)
}

func TestReplyLongestKeywordWins(t *testing.T) {
	rules := &fakeRuleSource{rules: []entities.AutomationRule{
		{ID: 1, Keyword: "harga", Reply: "price list"},
		{ID: 2, Keyword: "harga grosir", Reply: "wholesale price list"},
	}}
	svc := newTestReplyService(rules, &fakeAISource{}, &fakeHistorySource{}, nil)

	res, err := svc.Reply(context.Background(), testTenant, testConv, "berapa harga grosir?")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.RuleID)
	assert.Equal(t, "wholesale price list", res.Text)
}

func TestReplyEqualLengthLowestIDWins(t *testing.T) {
	// Rules arrive ordered by id; on equal keyword length the first match
	// stands.
	rules := &fakeRuleSource{rules: []entities.AutomationRule{
		{ID: 3, Keyword: "promo", Reply: "first"},
		{ID: 7, Keyword: "order", Reply: "second"},
	}}
	svc := newTestReplyService(rules, &fakeAISource{}, &fakeHistorySource{}, nil)

	res, err := svc.Reply(context.Background(), testTenant, testConv, "promo order?")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.RuleID)
}

func TestReplyEmptyTextProducesNothing(t *testing.T) {
	svc := newTestReplyService(&fakeRuleSource{}, &fakeAISource{}, &fakeHistorySource{}, nil)

	res, err := svc.Reply(context.Background(), testTenant, testConv, "   ")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReplyRuleSourceErrorPropagates(t *testing.T) {
	rules := &fakeRuleSource{err: errors.New("db down")}
	svc := newTestReplyService(rules, &fakeAISource{}, &fakeHistorySource{}, nil)

	_, err := svc.Reply(context.Background(), testTenant, testConv, "halo")
	assert.Error(t, err)
}

func activeAIConfig() *entities.AIConfig {
	return &entities.AIConfig{
		TenantID:     1,
		Provider:     entities.ProviderGemini,
		Model:        "gemini-2.0-flash",
		APIKey:       "key-123",
		Style:        entities.StyleFriendly,
		HistoryLimit: 10,
		IsActive:     true,
	}
}

func TestReplyAIFallback(t *testing.T) {
	ai := &fakeAISource{cfg: activeAIConfig()}
	history := &fakeHistorySource{history: []entities.Message{
		{Direction: entities.DirectionInbound, Body: "do you ship to Bali?"},
		{Direction: entities.DirectionOutbound, Body: "yes we do!"},
		{Direction: entities.DirectionInbound, Body: "how long does it take?"},
	}}
	client := &fakeAIClient{reply: "Usually 2-3 days to Bali."}
	svc := newTestReplyService(&fakeRuleSource{}, ai, history, client)

	res, err := svc.Reply(context.Background(), testTenant, testConv, "how long does it take?")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, ReplyAI, res.Source)
	assert.Equal(t, "Usually 2-3 days to Bali.", res.Text)

	require.Len(t, client.lastReq.History, 3)
	assert.Equal(t, "user", client.lastReq.History[0].Role)
	assert.Equal(t, "assistant", client.lastReq.History[1].Role)
	assert.Equal(t, "key-123", client.lastReq.APIKey)
	assert.Contains(t, client.lastReq.SystemPrompt, "Toko Berkah")
}

func TestReplyAIInactiveProducesNothing(t *testing.T) {
	cfg := activeAIConfig()
	cfg.IsActive = false
	svc := newTestReplyService(&fakeRuleSource{}, &fakeAISource{cfg: cfg}, &fakeHistorySource{}, &fakeAIClient{reply: "hi"})

	res, err := svc.Reply(context.Background(), testTenant, testConv, "halo")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReplyAIMissingKeyProducesNothing(t *testing.T) {
	cfg := activeAIConfig()
	cfg.APIKey = ""
	svc := newTestReplyService(&fakeRuleSource{}, &fakeAISource{cfg: cfg}, &fakeHistorySource{}, &fakeAIClient{reply: "hi"})

	res, err := svc.Reply(context.Background(), testTenant, testConv, "halo")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReplyAIEmptyHistoryProducesNothing(t *testing.T) {
	svc := newTestReplyService(&fakeRuleSource{}, &fakeAISource{cfg: activeAIConfig()}, &fakeHistorySource{}, &fakeAIClient{reply: "hi"})

	res, err := svc.Reply(context.Background(), testTenant, testConv, "halo")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReplyAIProviderErrorDegradesToNoReply(t *testing.T) {
	history := &fakeHistorySource{history: []entities.Message{{Direction: entities.DirectionInbound, Body: "halo"}}}
	client := &fakeAIClient{err: errors.New("quota exceeded")}
	svc := newTestReplyService(&fakeRuleSource{}, &fakeAISource{cfg: activeAIConfig()}, history, client)

	res, err := svc.Reply(context.Background(), testTenant, testConv, "halo")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestReplyUnknownProviderFallsBackToGemini(t *testing.T) {
	cfg := activeAIConfig()
	cfg.Provider = "mistral"
	history := &fakeHistorySource{history: []entities.Message{{Direction: entities.DirectionInbound, Body: "halo"}}}
	client := &fakeAIClient{reply: "hello!"}
	svc := newTestReplyService(&fakeRuleSource{}, &fakeAISource{cfg: cfg}, history, client)

	res, err := svc.Reply(context.Background(), testTenant, testConv, "halo")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "hello!", res.Text)
}
