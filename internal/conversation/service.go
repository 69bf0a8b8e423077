package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scimoveis_backend/internal/assistant"
	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/internal/crm/repository"
	"scimoveis_backend/internal/events"
	"scimoveis_backend/internal/session"
	"scimoveis_backend/internal/transcribe"
	"scimoveis_backend/platform/apperr"
	"scimoveis_backend/platform/logger"
	"scimoveis_backend/platform/phone"
	"scimoveis_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Canned replies, matching the broker's voice.
const (
	replyOutsideOfficeHours  = "🌙 Nosso horário de atendimento é das 8h às 22h. Retornaremos assim que possível! 😊"
	replyUnsupportedMedia    = "Olá! 👋 Sou Léo, corretor virtual da SC Imóveis. Por favor, envie mensagens de texto ou áudio. Como posso ajudar você a encontrar o imóvel dos seus sonhos?"
	replyBusy                = "Um momento, estou finalizando sua última solicitação... 🏃‍♂️"
	replyAudioTooLarge       = "❌ Áudio muito grande (máx 25MB). Tente enviar um áudio menor!"
	replyAudioUnintelligible = "❌ Não consegui entender o áudio. Pode repetir?"
	replyTechnicalProblem    = "❌ Ops! Tive um probleminha técnico. Pode repetir sua mensagem?"
	replyProcessingProblem   = "❌ Ops! Tive um problema ao processar sua mensagem. Pode repetir?"
	replySessionReset        = "Prontinho! Começamos do zero. 👋 Como posso ajudar você a encontrar o imóvel dos seus sonhos?"
)

// resetCommand wipes the chat's session when sent as the whole message.
const resetCommand = "#reiniciar"

// interBlockDelay paces multi-block replies so cards land as separate
// bubbles in order.
const interBlockDelay = 1500 * time.Millisecond

// Inbound is one normalized webhook delivery.
type Inbound struct {
	ChatID    string
	MessageID string
	PushName  string
	Text      string
	Audio     []byte
	AudioMime string
	Timestamp time.Time
	FromMe    bool
}

// Sender delivers outbound messages to a chat. quotedID, when non-empty,
// marks the reply as a quote of that gateway message.
type Sender interface {
	SendText(ctx context.Context, chatID, text, quotedID string) error
}

// Transcriber converts voice messages to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// FollowUpTracker registers chats for the re-engagement ladder.
type FollowUpTracker interface {
	Track(chatID string, tenantID, contactID uuid.UUID, propertyCodes []string)
	Touch(chatID string)
	Forget(chatID string)
}

// Service processes inbound messages for one WhatsApp device.
type Service struct {
	store        *session.Store
	repo         *repository.Repository
	orchestrator *assistant.Orchestrator
	sender       Sender
	transcriber  Transcriber
	followups    FollowUpTracker
	bus          events.Bus
	log          *logger.Logger

	tenantID         uuid.UUID
	officeHoursStart int
	officeHoursEnd   int
	location         *time.Location
	startTime        time.Time
	now              func() time.Time
	sleep            func(time.Duration)
}

// Config carries the service's tunables.
type Config struct {
	TenantID         uuid.UUID
	OfficeHoursStart int
	OfficeHoursEnd   int
}

// NewService wires the session controller. Messages timestamped before
// construction are ignored so a restart does not replay queued history.
func NewService(
	store *session.Store,
	repo *repository.Repository,
	orchestrator *assistant.Orchestrator,
	sender Sender,
	transcriber Transcriber,
	followups FollowUpTracker,
	bus events.Bus,
	log *logger.Logger,
	cfg Config,
) *Service {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}

	return &Service{
		store:            store,
		repo:             repo,
		orchestrator:     orchestrator,
		sender:           sender,
		transcriber:      transcriber,
		followups:        followups,
		bus:              bus,
		log:              log,
		tenantID:         cfg.TenantID,
		officeHoursStart: cfg.OfficeHoursStart,
		officeHoursEnd:   cfg.OfficeHoursEnd,
		location:         loc,
		startTime:        time.Now(),
		now:              time.Now,
		sleep:            time.Sleep,
	}
}

// HandleInbound runs the full pipeline for one delivery. Errors that the
// contact can recover from are answered in-chat; only infrastructure
// failures propagate.
func (s *Service) HandleInbound(ctx context.Context, in Inbound) error {
	if in.FromMe {
		return nil
	}
	if !in.Timestamp.IsZero() && in.Timestamp.Before(s.startTime) {
		return nil
	}

	log := s.log.WithChatID(in.ChatID)

	hour := s.now().In(s.location).Hour()
	if hour >= s.officeHoursEnd || hour < s.officeHoursStart {
		return s.sender.SendText(ctx, in.ChatID, replyOutsideOfficeHours, "")
	}

	if in.Text == "" && len(in.Audio) == 0 {
		return s.sender.SendText(ctx, in.ChatID, replyUnsupportedMedia, "")
	}

	if strings.EqualFold(strings.TrimSpace(in.Text), resetCommand) {
		s.store.Evict(in.ChatID)
		s.followups.Forget(in.ChatID)
		return s.sender.SendText(ctx, in.ChatID, replySessionReset, "")
	}

	sess, acquired := s.store.Acquire(in.ChatID)
	if !acquired {
		return s.sender.SendText(ctx, in.ChatID, replyBusy, "")
	}
	defer s.store.Release(in.ChatID)

	s.followups.Touch(in.ChatID)

	if err := s.ensureContact(ctx, sess, in.PushName); err != nil {
		log.Error("contact bootstrap failed", "error", err)
		return s.sender.SendText(ctx, in.ChatID, replyTechnicalProblem, "")
	}

	userInput, mediaType, handled, err := s.resolveInput(ctx, in)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	userInput = sanitize.Text(userInput)
	if userInput == "" {
		return s.sender.SendText(ctx, in.ChatID, replyUnsupportedMedia, "")
	}

	if err := s.recordInbound(ctx, sess, userInput, mediaType); err != nil {
		log.Error("inbound persistence failed", "error", err)
	}

	sess.AppendTurn(domain.RoleUser, userInput)

	replyText, err := s.orchestrator.Respond(ctx, sess, s.contextNote(sess))
	if err != nil {
		log.Error("assistant exchange failed", "error", err)
		return s.sender.SendText(ctx, in.ChatID, replyProcessingProblem, in.MessageID)
	}

	sess.AppendTurn("assistant", replyText)

	if err := s.recordOutbound(ctx, sess, replyText); err != nil {
		log.Error("outbound persistence failed", "error", err)
	}

	if err := s.deliver(ctx, in.ChatID, in.MessageID, replyText); err != nil {
		log.Error("reply delivery failed", "error", err)
		return err
	}

	s.applyOutcome(ctx, sess, Classify(replyText))
	return nil
}

// ensureContact hydrates the session's persistent identifiers, creating the
// contact, its first deal and the open conversation on first sight.
func (s *Service) ensureContact(ctx context.Context, sess *session.Session, pushName string) error {
	if sess.ContactID != uuid.Nil {
		return nil
	}

	contactPhone := phone.FromJID(sess.ChatID)
	if contactPhone == "" {
		return fmt.Errorf("chat %s has no phone component", sess.ChatID)
	}

	name := sanitize.Text(pushName)
	contact, created, err := s.repo.FindOrCreateContact(ctx, s.tenantID, contactPhone, name)
	if err != nil {
		return err
	}
	if !created && name != "" && contact.Name == "" {
		if err := s.repo.UpdateContactName(ctx, s.tenantID, contact.ID, name); err != nil {
			s.log.WithChatID(sess.ChatID).Warn("contact name update failed", "error", err)
		}
		contact.Name = name
	}

	if created {
		if err := s.createFirstDeal(ctx, contact); err != nil {
			return err
		}
	}

	conv, err := s.repo.FindOrCreateOpenConversation(ctx, s.tenantID, contact.ID)
	if err != nil {
		return err
	}

	sess.TenantID = s.tenantID
	sess.ContactID = contact.ID
	sess.ConversationID = conv.ID
	sess.ContactPhone = contact.Phone
	sess.ContactScore = contact.Score
	sess.ContactName = contact.Name
	if sess.ContactName == "" {
		sess.ContactName = contact.Phone
	}
	return nil
}

func (s *Service) createFirstDeal(ctx context.Context, contact *domain.Contact) error {
	firstStage, err := s.repo.GetStageByOrder(ctx, s.tenantID, domain.StageOrderNewLeads)
	if err != nil {
		return fmt.Errorf("first pipeline stage: %w", err)
	}

	title := contact.Name
	if title == "" {
		title = contact.Phone
	}
	deal := &domain.Deal{
		TenantID:    s.tenantID,
		ContactID:   contact.ID,
		StageID:     firstStage.ID,
		Title:       "Lead - " + title,
		Probability: domain.ProbabilityInitial,
	}
	return s.repo.CreateDeal(ctx, deal)
}

// resolveInput turns the delivery into plain text, transcribing audio.
// handled=true means a reply was already sent and processing must stop.
func (s *Service) resolveInput(ctx context.Context, in Inbound) (text, mediaType string, handled bool, err error) {
	if len(in.Audio) == 0 {
		return in.Text, domain.MediaTypeText, false, nil
	}

	transcription, err := s.transcriber.Transcribe(ctx, in.Audio, in.AudioMime)
	if err != nil {
		reply := replyAudioUnintelligible
		if errors.Is(err, transcribe.ErrAudioTooLarge) {
			reply = replyAudioTooLarge
		}
		s.log.WithChatID(in.ChatID).Warn("audio transcription failed", "error", err)
		return "", "", true, s.sender.SendText(ctx, in.ChatID, reply, "")
	}
	return transcription, domain.MediaTypeAudio, false, nil
}

func (s *Service) recordInbound(ctx context.Context, sess *session.Session, text, mediaType string) error {
	msg := &domain.Message{
		ConversationID: sess.ConversationID,
		TenantID:       sess.TenantID,
		Direction:      domain.DirectionInbound,
		Role:           domain.RoleUser,
		Content:        text,
		MediaType:      mediaType,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return err
	}
	if err := s.repo.TouchContactInteraction(ctx, sess.TenantID, sess.ContactID, s.now()); err != nil {
		return err
	}

	s.applyScore(ctx, sess, domain.ScoreMessageSent, "message_sent")

	s.bus.Publish(ctx, events.MessageReceived{
		BaseEvent:      events.NewBaseEvent(),
		TenantID:       sess.TenantID,
		ContactID:      sess.ContactID,
		ConversationID: sess.ConversationID,
		ChatID:         sess.ChatID,
		MediaType:      mediaType,
	})
	return nil
}

func (s *Service) recordOutbound(ctx context.Context, sess *session.Session, replyText string) error {
	return s.repo.AppendMessage(ctx, &domain.Message{
		ConversationID: sess.ConversationID,
		TenantID:       sess.TenantID,
		Direction:      domain.DirectionOutbound,
		Role:           domain.RoleAssistant,
		Content:        StripMarkers(replyText),
		MediaType:      domain.MediaTypeText,
	})
}

// deliver sends the reply, splitting block-marked listings into separate
// messages. The first block quotes the contact's message.
func (s *Service) deliver(ctx context.Context, chatID, quotedID, replyText string) error {
	blocks := SplitBlocks(replyText)
	for i, block := range blocks {
		quote := ""
		if i == 0 {
			quote = quotedID
		}
		if err := s.sender.SendText(ctx, chatID, block, quote); err != nil {
			return err
		}
		if i < len(blocks)-1 {
			s.sleep(interBlockDelay)
		}
	}
	return nil
}

// contextNote summarizes session state for the model without entering the
// persisted history.
func (s *Service) contextNote(sess *session.Session) string {
	return fmt.Sprintf(
		"Estado atual da conversa: etapa=%s, imóveis apresentados=%d, interações=%d. "+
			"Mensagens no histórico: %d. Nome do cliente: %s. Score do lead: %d/100. "+
			"IMPORTANTE: Seja assertivo e direto. Após mostrar imóveis, SEMPRE proponha agendar visita imediatamente.",
		sess.Stage, len(sess.PresentedProperties), sess.InteractionCount,
		len(sess.History), sess.ContactName, sess.ContactScore,
	)
}

// applyOutcome turns the reply classification into state, score and
// pipeline mutations.
func (s *Service) applyOutcome(ctx context.Context, sess *session.Session, outcome Outcome) {
	if stage := outcome.Signal.SessionStage(); stage != "" {
		sess.Stage = stage
	}

	switch outcome.Signal {
	case SignalScheduled:
		s.applyScore(ctx, sess, domain.ScoreVisitScheduled, "visit_scheduled")
		s.advanceDealStage(ctx, sess)
	case SignalScheduling:
		s.applyScore(ctx, sess, domain.ScoreScheduleRequested, "schedule_requested")
	case SignalPresented:
		sess.InteractionCount++
	}

	if len(outcome.PropertyCodes) > 0 {
		sess.RecordPresented(outcome.PropertyCodes)
		s.followups.Track(sess.ChatID, sess.TenantID, sess.ContactID, outcome.PropertyCodes)
		s.applyScore(ctx, sess, domain.ScorePropertyViewed, "property_viewed")

		s.bus.Publish(ctx, events.PropertiesPresented{
			BaseEvent:      events.NewBaseEvent(),
			TenantID:       sess.TenantID,
			ContactID:      sess.ContactID,
			ConversationID: sess.ConversationID,
			PropertyCodes:  outcome.PropertyCodes,
		})
	}
}

func (s *Service) applyScore(ctx context.Context, sess *session.Session, delta int, reason string) {
	newScore, err := s.repo.AdjustContactScore(ctx, sess.TenantID, sess.ContactID, delta)
	if err != nil {
		s.log.WithChatID(sess.ChatID).Error("score update failed", "reason", reason, "error", err)
		return
	}
	sess.ContactScore = newScore

	s.bus.Publish(ctx, events.ContactScoreChanged{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  sess.TenantID,
		ContactID: sess.ContactID,
		Delta:     delta,
		NewScore:  newScore,
		Reason:    reason,
	})
}

// advanceDealStage moves the contact's open deal one step up the ladder and
// bumps its probability by 25 points. Deals already at the last normal
// stage stay put.
func (s *Service) advanceDealStage(ctx context.Context, sess *session.Session) {
	log := s.log.WithChatID(sess.ChatID)

	deal, err := s.repo.GetOpenDealByContact(ctx, sess.TenantID, sess.ContactID)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			log.Error("open deal lookup failed", "error", err)
		}
		return
	}

	next, err := s.repo.NextStage(ctx, sess.TenantID, deal.Stage.Order)
	if err != nil {
		log.Error("next stage lookup failed", "error", err)
		return
	}
	if next == nil {
		return
	}

	if err := s.repo.MoveDealStage(ctx, sess.TenantID, deal.ID, next.ID); err != nil {
		log.Error("deal stage move failed", "error", err)
		return
	}
	if err := s.repo.SetDealProbability(ctx, sess.TenantID, deal.ID, deal.Probability+25); err != nil {
		log.Error("deal probability update failed", "error", err)
	}

	s.bus.Publish(ctx, events.DealStageChanged{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  sess.TenantID,
		DealID:    deal.ID,
		ContactID: sess.ContactID,
		FromStage: deal.Stage.Name,
		ToStage:   next.Name,
	})
}
