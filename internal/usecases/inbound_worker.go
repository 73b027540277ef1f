package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
	"project_chatflow/internal/interfaces"
	"project_chatflow/internal/repository"
)

// InboundWorker is the single blocking consumer of the inbound-events
// queue. Each event runs normalize -> resolve -> persist inside one
// transaction; reply generation and the outbound send run after commit so a
// failed reply never undoes a recorded inbound message.
type InboundWorker struct {
	log           *infrastructure.Logger
	queue         interfaces.Queue
	publisher     interfaces.Publisher
	pool          *pgxpool.Pool
	normalizer    *Normalizer
	tenants       *repository.TenantRepository
	contacts      *repository.ContactRepository
	conversations *repository.ConversationRepository
	messages      *repository.MessageRepository
	templates     *repository.TemplateRepository
	reply         *ReplyService
	sender        *ChannelSender

	// DefaultTenantID routes events whose channel carries no tenant
	// routing key. Resolved once at startup, never from ambient state.
	defaultTenantID int

	popTimeout   time.Duration
	eventTimeout time.Duration
}

func NewInboundWorker(
	log *infrastructure.Logger,
	queue interfaces.Queue,
	publisher interfaces.Publisher,
	pool *pgxpool.Pool,
	normalizer *Normalizer,
	tenants *repository.TenantRepository,
	contacts *repository.ContactRepository,
	conversations *repository.ConversationRepository,
	messages *repository.MessageRepository,
	templates *repository.TemplateRepository,
	reply *ReplyService,
	sender *ChannelSender,
	defaultTenantID int,
) *InboundWorker {
	return &InboundWorker{
		log:             log.With("component", "inbound_worker"),
		queue:           queue,
		publisher:       publisher,
		pool:            pool,
		normalizer:      normalizer,
		tenants:         tenants,
		contacts:        contacts,
		conversations:   conversations,
		messages:        messages,
		templates:       templates,
		reply:           reply,
		sender:          sender,
		defaultTenantID: defaultTenantID,
		popTimeout:      2 * time.Second,
		eventTimeout:    time.Minute,
	}
}

// Run blocks until the context is cancelled. The short pop timeout lets the
// loop observe shutdown between events; the in-flight event always
// completes first.
func (w *InboundWorker) Run(ctx context.Context) {
	w.log.Info("inbound worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("inbound worker stopped")
			return
		default:
		}

		raw, err := w.queue.Dequeue(ctx, infrastructure.InboundQueue, w.popTimeout)
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

		if err := w.process(ctx, raw); err != nil {
			// One bad event never halts the loop; the event is not
			// requeued.
			w.log.Error("event processing failed", "error", err)
		}
	}
}

func (w *InboundWorker) process(parent context.Context, raw []byte) error {
	// The in-flight event always completes: shutdown cancellation applies
	// to the dequeue loop, not to an event already popped from the queue.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), w.eventTimeout)
	defer cancel()

	var env entities.InboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		w.log.Warn("malformed envelope dropped", "error", err)
		return nil
	}

	res := w.normalizer.Normalize(env)
	switch res.Class {
	case EventIgnored:
		return nil
	case EventTemplateStatus:
		tenant, err := w.resolveTenant(ctx, env.Channel, res.TemplateStatus.RoutingKey)
		if err != nil {
			return fmt.Errorf("resolve tenant for template status: %w", err)
		}
		return w.templates.UpdateStatus(ctx, tenant.ID, *res.TemplateStatus)
	case EventMessage:
		return w.processMessage(ctx, res.Event)
	}
	return nil
}

func (w *InboundWorker) resolveTenant(ctx context.Context, channel, routingKey string) (*entities.Tenant, error) {
	tenant, err := w.tenants.GetByRoutingKey(ctx, channel, routingKey)
	if err == nil {
		return tenant, nil
	}
	if err != repository.ErrTenantNotFound {
		return nil, err
	}
	return w.tenants.GetByID(ctx, w.defaultTenantID)
}

func (w *InboundWorker) processMessage(ctx context.Context, ev *entities.CanonicalEvent) error {
	tenant, err := w.resolveTenant(ctx, ev.Channel, ev.RoutingKey)
	if err != nil {
		return fmt.Errorf("resolve tenant: %w", err)
	}

	ids := entities.Identifiers{}
	switch ev.Channel {
	case entities.ChannelWhatsApp:
		ids.Phone = ev.SenderIdentifier
	case entities.ChannelMessenger:
		ids.MessengerID = ev.SenderIdentifier
	case entities.ChannelInstagram:
		ids.InstagramID = ev.SenderIdentifier
	case entities.ChannelTelegram:
		ids.TelegramID = ev.SenderIdentifier
	}

	// Resolve + persist is one unit of work; any failure rolls the whole
	// event back.
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	contact, err := w.contacts.Resolve(ctx, tx, tenant.ID, ids, ev.Hints)
	if err != nil {
		return err
	}
	conv, err := w.conversations.ResolveOpen(ctx, tx, tenant.ID, contact.ID, ev.Channel)
	if err != nil {
		return err
	}

	msg := &entities.Message{
		ConversationID: conv.ID,
		Direction:      entities.DirectionInbound,
		Type:           ev.MessageType,
		Body:           ev.TextBody,
		Media:          ev.Media,
		ExternalID:     ev.ExternalID,
		Status:         entities.StatusReceived,
		RawPayload:     ev.RawPayload,
	}
	duplicate, err := w.messages.Append(ctx, tx, msg)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if duplicate {
		// Replayed queue entry (at-least-once delivery): the message is
		// already recorded, so no second reply.
		w.log.Debug("duplicate inbound event skipped", "external_id", ev.ExternalID)
		return nil
	}

	w.publish(ctx, tenant.ID, msg)

	// Post-commit side effects: reply trouble must not undo ingestion.
	result, err := w.reply.Reply(ctx, tenant, conv, ev.TextBody)
	if err != nil {
		w.log.Warn("reply lookup failed", "tenant", tenant.ID, "error", err)
		return nil
	}
	if result == nil {
		return nil
	}

	externalID := w.sender.TrySendText(ctx, tenant, conv, ev.SenderIdentifier, result.Text)
	if externalID == "" {
		return nil
	}

	out := &entities.Message{
		ConversationID: conv.ID,
		Direction:      entities.DirectionOutbound,
		Type:           entities.TypeText,
		Body:           result.Text,
		ExternalID:     externalID,
		Status:         entities.StatusSent,
	}
	if _, err := w.messages.Append(ctx, w.pool, out); err != nil {
		w.log.Error("record outbound reply failed", "tenant", tenant.ID, "error", err)
		return nil
	}
	w.publish(ctx, tenant.ID, out)
	return nil
}

// publish fans the persisted row out to live subscribers. Best-effort only.
func (w *InboundWorker) publish(ctx context.Context, tenantID int, msg *entities.Message) {
	if err := w.publisher.PublishEvent(ctx, tenantID, msg); err != nil {
		w.log.Warn("realtime publish failed", "tenant", tenantID, "error", err)
	}
}
