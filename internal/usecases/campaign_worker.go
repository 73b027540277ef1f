package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
	"project_chatflow/internal/interfaces"
	"project_chatflow/internal/repository"
)

// CampaignStore is the slice of campaign persistence the dispatcher needs.
type CampaignStore interface {
	GetCampaign(ctx context.Context, id int) (*entities.Campaign, error)
	GetItem(ctx context.Context, id int) (*entities.CampaignItem, error)
	EnsureProcessing(ctx context.Context, campaignID int) error
	FinalizeItem(ctx context.Context, itemID int, outcome repository.ItemOutcome) error
}

// ContactLookup resolves recipients by id.
type ContactLookup interface {
	GetByID(ctx context.Context, id int) (*entities.Contact, error)
}

// TenantLookup resolves the sending tenant and its channel credentials.
type TenantLookup interface {
	GetByID(ctx context.Context, id int) (*entities.Tenant, error)
}

// TemplateLookup resolves template metadata and body for rendering.
type TemplateLookup interface {
	Get(ctx context.Context, tenantID int, name, language string) (*entities.MessageTemplate, error)
}

// TemplateDispatcher is the outbound surface the campaign worker uses.
type TemplateDispatcher interface {
	SendTemplate(ctx context.Context, tenant *entities.Tenant, channel, to string, tpl interfaces.TemplateSend) (string, error)
	SendMedia(ctx context.Context, tenant *entities.Tenant, channel, to string, media entities.MediaDescriptor) (string, error)
}

// OutboundRecorder links a sent message to a conversation row.
type OutboundRecorder interface {
	RecordOutbound(ctx context.Context, tenantID, contactID int, channel string, msg *entities.Message) (int, error)
}

// OutboundLog persists dispatcher-originated messages. Campaign sends go
// through OpenForSend, which never refreshes the session window: only
// customer messages re-open it.
type OutboundLog struct {
	pool          *pgxpool.Pool
	conversations *repository.ConversationRepository
	messages      *repository.MessageRepository
}

func NewOutboundLog(pool *pgxpool.Pool, conversations *repository.ConversationRepository, messages *repository.MessageRepository) *OutboundLog {
	return &OutboundLog{pool: pool, conversations: conversations, messages: messages}
}

func (l *OutboundLog) RecordOutbound(ctx context.Context, tenantID, contactID int, channel string, msg *entities.Message) (int, error) {
	conv, err := l.conversations.OpenForSend(ctx, l.pool, tenantID, contactID, channel)
	if err != nil {
		return 0, fmt.Errorf("conversation for outbound: %w", err)
	}
	msg.ConversationID = conv.ID
	if _, err := l.messages.Append(ctx, l.pool, msg); err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// CampaignWorker is the single blocking consumer of the marketing queue.
// Sends are retried per DefaultRetryPolicy and globally paced: the worker
// waits one pacer slot after every job, success or failure, so the
// aggregate provider call rate stays bounded.
type CampaignWorker struct {
	log       *infrastructure.Logger
	queue     interfaces.Queue
	campaigns CampaignStore
	contacts  ContactLookup
	tenants   TenantLookup
	templates TemplateLookup
	sender    TemplateDispatcher
	outbound  OutboundRecorder
	retry     infrastructure.RetryPolicy
	pacer     *infrastructure.SendPacer

	sendTimeout time.Duration
	popTimeout  time.Duration
	jobTimeout  time.Duration
}

func NewCampaignWorker(
	log *infrastructure.Logger,
	queue interfaces.Queue,
	campaigns CampaignStore,
	contacts ContactLookup,
	tenants TenantLookup,
	templates TemplateLookup,
	sender TemplateDispatcher,
	outbound OutboundRecorder,
	pacer *infrastructure.SendPacer,
) *CampaignWorker {
	return &CampaignWorker{
		log:         log.With("component", "campaign_worker"),
		queue:       queue,
		campaigns:   campaigns,
		contacts:    contacts,
		tenants:     tenants,
		templates:   templates,
		sender:      sender,
		outbound:    outbound,
		retry:       infrastructure.DefaultRetryPolicy(),
		pacer:       pacer,
		sendTimeout: 30 * time.Second,
		popTimeout:  2 * time.Second,
		jobTimeout:  3 * time.Minute,
	}
}

// Run blocks until the context is cancelled. The in-flight job always
// completes before shutdown is observed.
func (w *CampaignWorker) Run(ctx context.Context) {
	w.log.Info("campaign worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("campaign worker stopped")
			return
		default:
		}

		raw, err := w.queue.Dequeue(ctx, infrastructure.MarketingQueue, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("dequeue failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if raw == nil {
			continue
		}

		w.process(ctx, raw)

		if err := w.pacer.Wait(ctx); err != nil && ctx.Err() == nil {
			w.log.Error("pacer wait failed", "error", err)
		}
	}
}

func (w *CampaignWorker) process(parent context.Context, raw []byte) {
	// The queue entry is already consumed, so the job must finish even when
	// shutdown cancels the loop; otherwise the item stays QUEUED forever.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.jobTimeout)
	defer cancel()

	var job entities.MarketingJob
	if err := json.Unmarshal(raw, &job); err != nil {
		w.log.Warn("malformed job dropped", "error", err)
		return
	}

	switch job.Type {
	case entities.JobCampaignSend:
		if err := w.processCampaignSend(ctx, job); err != nil {
			w.log.Error("campaign send failed", "job", job.ID, "item", job.ItemID, "error", err)
		}
	case entities.JobSendEventBadge:
		if err := w.processEventBadge(ctx, job); err != nil {
			w.log.Error("event badge send failed", "job", job.ID, "error", err)
		}
	default:
		w.log.Warn("unknown job type dropped", "type", job.Type, "job", job.ID)
	}
}

func (w *CampaignWorker) processCampaignSend(ctx context.Context, job entities.MarketingJob) error {
	item, err := w.campaigns.GetItem(ctx, job.ItemID)
	if err != nil {
		return fmt.Errorf("load item %d: %w", job.ItemID, err)
	}
	if item == nil {
		w.log.Warn("job for unknown item dropped", "item", job.ItemID)
		return nil
	}
	if item.Terminal() {
		// Replayed job; the outcome already stands.
		return nil
	}

	campaign, err := w.campaigns.GetCampaign(ctx, job.CampaignID)
	if err != nil {
		return fmt.Errorf("load campaign %d: %w", job.CampaignID, err)
	}
	if campaign == nil {
		w.log.Warn("job for unknown campaign dropped", "campaign", job.CampaignID)
		return nil
	}
	// Jobs carry the send parameters; the campaign row backfills any the
	// producer left empty.
	if job.Channel == "" {
		job.Channel = campaign.Channel
	}
	if job.TemplateName == "" {
		job.TemplateName = campaign.TemplateName
		job.Language = campaign.Language
	}

	if err := w.campaigns.EnsureProcessing(ctx, job.CampaignID); err != nil {
		return fmt.Errorf("mark campaign processing: %w", err)
	}

	tenant, err := w.tenants.GetByID(ctx, job.TenantID)
	if errors.Is(err, repository.ErrTenantNotFound) {
		// No retry can resurrect a deleted tenant; fail the item so the
		// campaign can still reach a terminal status.
		return w.campaigns.FinalizeItem(ctx, job.ItemID, repository.ItemOutcome{
			Status:    entities.ItemFailed,
			LastError: fmt.Sprintf("tenant %d not found", job.TenantID),
		})
	}
	if err != nil {
		return fmt.Errorf("load tenant %d: %w", job.TenantID, err)
	}

	contact, err := w.contacts.GetByID(ctx, job.ContactID)
	if err != nil {
		return fmt.Errorf("load contact %d: %w", job.ContactID, err)
	}

	if fail, reason := w.precheck(ctx, tenant, contact, job); fail {
		return w.campaigns.FinalizeItem(ctx, job.ItemID, repository.ItemOutcome{
			Status:    entities.ItemFailed,
			LastError: reason,
		})
	}

	recipient := contact.Identifiers.ForChannel(job.Channel)
	tpl, body := w.renderJob(ctx, tenant, job)

	result := w.retry.Do(ctx, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
		defer cancel()
		return w.sender.SendTemplate(callCtx, tenant, job.Channel, recipient, tpl)
	})

	if result.Err != nil {
		return w.campaigns.FinalizeItem(ctx, job.ItemID, repository.ItemOutcome{
			Status:    entities.ItemFailed,
			LastError: result.Err.Error(),
			Retries:   result.Retries,
		})
	}

	outcome := repository.ItemOutcome{
		Status:  entities.ItemSent,
		Retries: result.Retries,
	}
	msg := &entities.Message{
		Direction:  entities.DirectionOutbound,
		Type:       entities.TypeTemplate,
		Body:       body,
		ExternalID: result.Value,
		Status:     entities.StatusSent,
	}
	msgID, err := w.outbound.RecordOutbound(ctx, job.TenantID, job.ContactID, job.Channel, msg)
	if err != nil {
		// The provider accepted the send; the item is SENT either way.
		w.log.Error("record outbound message failed", "item", job.ItemID, "error", err)
	} else {
		outcome.MessageID = &msgID
	}
	return w.campaigns.FinalizeItem(ctx, job.ItemID, outcome)
}

// precheck catches failures that no amount of retrying can fix, so the
// item fails before the first provider call.
func (w *CampaignWorker) precheck(ctx context.Context, tenant *entities.Tenant, contact *entities.Contact, job entities.MarketingJob) (bool, string) {
	if contact == nil {
		return true, fmt.Sprintf("contact %d not found", job.ContactID)
	}
	if contact.Identifiers.ForChannel(job.Channel) == "" {
		return true, fmt.Sprintf("contact %d has no %s identifier", contact.ID, job.Channel)
	}
	if tenant.ChannelToken(job.Channel) == "" {
		return true, fmt.Sprintf("tenant %d has no credentials for channel %s", tenant.ID, job.Channel)
	}
	if job.TemplateName != "" {
		t, err := w.templates.Get(ctx, tenant.ID, job.TemplateName, job.Language)
		if err != nil {
			w.log.Warn("template lookup failed", "template", job.TemplateName, "error", err)
			return false, ""
		}
		if t != nil && t.Status == entities.TemplateRejected {
			return true, fmt.Sprintf("template %s/%s is rejected", job.TemplateName, job.Language)
		}
	}
	return false, ""
}

// renderJob assembles the provider payload and the persisted message body.
// When the template body is known locally the params are substituted into
// it; otherwise the provider renders from the name alone and the stored
// body falls back to the template name.
func (w *CampaignWorker) renderJob(ctx context.Context, tenant *entities.Tenant, job entities.MarketingJob) (interfaces.TemplateSend, string) {
	tpl := interfaces.TemplateSend{
		Name:     job.TemplateName,
		Language: job.Language,
		Params:   job.Params,
	}

	body := job.TemplateName
	if t, err := w.templates.Get(ctx, tenant.ID, job.TemplateName, job.Language); err == nil && t != nil {
		body = RenderTemplate(t.Body, job.Params)
		tpl.Body = body
	}
	return tpl, body
}

func (w *CampaignWorker) processEventBadge(ctx context.Context, job entities.MarketingJob) error {
	tenant, err := w.tenants.GetByID(ctx, job.TenantID)
	if err != nil {
		return fmt.Errorf("load tenant %d: %w", job.TenantID, err)
	}
	contact, err := w.contacts.GetByID(ctx, job.ContactID)
	if err != nil {
		return fmt.Errorf("load contact %d: %w", job.ContactID, err)
	}
	if contact == nil {
		w.log.Warn("badge job for unknown contact dropped", "contact", job.ContactID)
		return nil
	}
	recipient := contact.Identifiers.ForChannel(job.Channel)
	if recipient == "" {
		w.log.Warn("badge job skipped, no channel identifier", "contact", contact.ID, "channel", job.Channel)
		return nil
	}

	media := entities.MediaDescriptor{
		MediaRef: job.BadgeURL,
		Caption:  job.Caption,
		MimeType: "image/png",
	}
	result := w.retry.Do(ctx, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
		defer cancel()
		return w.sender.SendMedia(callCtx, tenant, job.Channel, recipient, media)
	})
	if result.Err != nil {
		return fmt.Errorf("send badge: %w", result.Err)
	}

	msg := &entities.Message{
		Direction:  entities.DirectionOutbound,
		Type:       entities.TypeImage,
		Body:       job.Caption,
		Media:      &media,
		ExternalID: result.Value,
		Status:     entities.StatusSent,
	}
	if _, err := w.outbound.RecordOutbound(ctx, job.TenantID, job.ContactID, job.Channel, msg); err != nil {
		w.log.Error("record badge message failed", "contact", contact.ID, "error", err)
	}
	return nil
}

// RenderTemplate substitutes {{key}} placeholders with their parameter
// values. Unknown placeholders are left as-is so a mis-parameterized
// campaign is visible in the stored body rather than silently blanked.
func RenderTemplate(body string, params map[string]string) string {
	rendered := body
	for key, value := range params {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}
	return rendered
}
