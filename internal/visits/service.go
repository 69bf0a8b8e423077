// Package visits books property visits requested through the assistant and
// hands them off to human agents.
package visits

import (
	"context"
	"fmt"
	"time"

	"scimoveis_backend/internal/assistant"
	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/internal/crm/repository"
	"scimoveis_backend/internal/events"
	"scimoveis_backend/internal/properties"
	"scimoveis_backend/internal/session"
	"scimoveis_backend/platform/apperr"
	"scimoveis_backend/platform/logger"
)

// Booking windows, local time. Phone calls have a wider window than
// in-person visits.
const (
	visitHourStart = 9
	visitHourEnd   = 18
	phoneHourStart = 8
	phoneHourEnd   = 20
)

// Service validates and records visit bookings.
type Service struct {
	repo       *repository.Repository
	properties *properties.Repository
	bus        events.Bus
	log        *logger.Logger
	location   *time.Location
	now        func() time.Time
}

// NewService creates the visit booking service. Times are interpreted in
// São Paulo local time.
func NewService(repo *repository.Repository, props *properties.Repository, bus events.Bus, log *logger.Logger) *Service {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}

	return &Service{
		repo:       repo,
		properties: props,
		bus:        bus,
		log:        log,
		location:   loc,
		now:        time.Now,
	}
}

// Schedule validates the booking, persists an agent task and publishes
// VisitScheduled. The returned string is the confirmation handed back to the
// model; validation problems come back as errors so the model can ask the
// contact for a workable slot.
func (s *Service) Schedule(ctx context.Context, sess *session.Session, params assistant.VisitParams) (string, error) {
	visitAt, err := s.parseVisitTime(params.Date, params.Time)
	if err != nil {
		return "", err
	}
	if err := s.validateWindow(visitAt, params.IsPhoneCall); err != nil {
		return "", err
	}

	prop, err := s.properties.GetByCode(ctx, sess.TenantID, params.PropertyCode)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return "", apperr.Validation(fmt.Sprintf("imóvel %s não encontrado, confirme o código", params.PropertyCode))
		}
		return "", err
	}

	kind := "Visita"
	if params.IsPhoneCall {
		kind = "Ligação"
	}

	task := &domain.Task{
		TenantID:  sess.TenantID,
		ContactID: &sess.ContactID,
		Title: fmt.Sprintf("%s agendada: %s (%s) - %s",
			kind, prop.Code, prop.City, params.CustomerName),
		DueAt: visitAt,
	}

	deal, err := s.repo.GetOpenDealByContact(ctx, sess.TenantID, sess.ContactID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return "", err
	}
	if deal != nil {
		task.DealID = &deal.ID
	}

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return "", err
	}

	event := events.VisitScheduled{
		BaseEvent:    events.NewBaseEvent(),
		TenantID:     sess.TenantID,
		ContactID:    sess.ContactID,
		TaskID:       task.ID,
		ContactName:  params.CustomerName,
		ContactPhone: sess.ContactPhone,
		PropertyCode: prop.Code,
		VisitAt:      visitAt,
	}
	if deal != nil {
		event.DealID = deal.ID
	}
	s.bus.Publish(ctx, event)

	s.log.WithChatID(sess.ChatID).Info("visit scheduled",
		"property", prop.Code,
		"visit_at", visitAt.Format(time.RFC3339),
		"phone_call", params.IsPhoneCall,
	)

	return fmt.Sprintf(
		"Visita para o imóvel %s agendada com sucesso para %s no dia %s às %s. Um corretor entrará em contato para confirmar.",
		prop.Code, params.CustomerName, visitAt.Format("02/01/2006"), visitAt.Format("15:04"),
	), nil
}

func (s *Service) parseVisitTime(date, hour string) (time.Time, error) {
	visitAt, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hour, s.location)
	if err != nil {
		return time.Time{}, apperr.Validation("data ou horário inválido, use AAAA-MM-DD e HH:MM")
	}
	if !visitAt.After(s.now().In(s.location)) {
		return time.Time{}, apperr.Validation("o horário solicitado já passou, sugira um horário futuro")
	}
	return visitAt, nil
}

func (s *Service) validateWindow(visitAt time.Time, isPhoneCall bool) error {
	start, end := visitHourStart, visitHourEnd
	if isPhoneCall {
		start, end = phoneHourStart, phoneHourEnd
	}

	h := visitAt.Hour()
	if h < start || h >= end {
		return apperr.Validation(fmt.Sprintf(
			"horário fora da janela de atendimento (%02dh às %02dh)", start, end))
	}
	return nil
}
