package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carnival/internal/config"
	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/internal/repositories"
	"carnival/pkg/utils"
)

type EventListQuery struct {
	Status   string
	IsActive *bool
}

type EventServiceInterface interface {
	Create(ctx context.Context, req request_models.CreateEventRequest) (*dbm.Event, error)
	List(ctx context.Context, q EventListQuery) ([]dbm.Event, error)
	Get(ctx context.Context, id uuid.UUID) (*dbm.Event, error)
	Update(ctx context.Context, id uuid.UUID, req request_models.UpdateEventRequest) (*dbm.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*dbm.Event, error)
	SetPhase2(ctx context.Context, id uuid.UUID, active bool) (*dbm.Event, error)
	Active(ctx context.Context) (*dbm.Event, error)
}

type EventService struct {
	eventRepo repositories.EventRepository
	timeout   time.Duration
	log       *zap.Logger
}

func NewEventService(eventRepo repositories.EventRepository, cfg *config.Config, log *zap.Logger) EventServiceInterface {
	return &EventService{
		eventRepo: eventRepo,
		timeout:   cfg.DB.QueryTimeout,
		log:       log.Named("events"),
	}
}

func (s *EventService) nameTaken(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.eventRepo.FindByName(ctx, name)
	if err != nil {
		return storeErr(err, "event")
	}
	if existing != nil && existing.ID != self {
		return fmt.Errorf("%w: an event named %q", utils.ErrConflict, name)
	}
	return nil
}

func (s *EventService) Create(ctx context.Context, req request_models.CreateEventRequest) (*dbm.Event, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationf("name is required")
	}
	if req.StartDate.After(req.EndDate) {
		return nil, validationf("startDate must not be after endDate")
	}
	status := dbm.EventUpcoming
	if req.Status != "" {
		status = dbm.EventStatus(req.Status)
		if !status.Valid() {
			return nil, validationf("unknown status %q", req.Status)
		}
	}
	maxPoints := int64(dbm.DefaultEventMaxPoints)
	if req.MaxPoints != nil {
		if *req.MaxPoints < 0 {
			return nil, validationf("maxPoints must not be negative")
		}
		maxPoints = *req.MaxPoints
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.nameTaken(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	event := &dbm.Event{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		StartDate:   req.StartDate.Unix(),
		EndDate:     req.EndDate.Unix(),
		Location:    strings.TrimSpace(req.Location),
		Status:      status,
		MaxPoints:   maxPoints,
		BannerImage: req.BannerImage,
		IsActive:    true,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, storeErr(err, "event")
	}
	s.log.Info("event created", zap.String("event_id", event.ID.String()), zap.String("name", name))
	return event, nil
}

func (s *EventService) List(ctx context.Context, q EventListQuery) ([]dbm.Event, error) {
	filter := repositories.EventFilter{IsActive: q.IsActive}
	if q.Status != "" {
		filter.Status = dbm.EventStatus(q.Status)
		if !filter.Status.Valid() {
			return nil, validationf("unknown status %q", q.Status)
		}
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "events")
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*dbm.Event, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	event, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	if event == nil {
		return nil, notFoundf("event %s", id)
	}
	return event, nil
}

func (s *EventService) Update(ctx context.Context, id uuid.UUID, req request_models.UpdateEventRequest) (*dbm.Event, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationf("name must not be empty")
		}
		if err := s.nameTaken(ctx, name, id); err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	start, end := event.StartDate, event.EndDate
	if req.StartDate != nil {
		start = req.StartDate.Unix()
		fields["start_date"] = start
	}
	if req.EndDate != nil {
		end = req.EndDate.Unix()
		fields["end_date"] = end
	}
	if start > end {
		return nil, validationf("startDate must not be after endDate")
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		fields["location"] = strings.TrimSpace(*req.Location)
	}
	if req.MaxPoints != nil {
		if *req.MaxPoints < 0 {
			return nil, validationf("maxPoints must not be negative")
		}
		fields["max_points"] = *req.MaxPoints
	}
	if req.BannerImage != nil {
		fields["banner_image"] = *req.BannerImage
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}

	if len(fields) > 0 {
		if err := s.eventRepo.Update(ctx, id, fields); err != nil {
			return nil, storeErr(err, "event")
		}
	}
	return s.Get(ctx, id)
}

func (s *EventService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return storeErr(err, "event")
	}
	s.log.Info("event deleted", zap.String("event_id", id.String()))
	return nil
}

func (s *EventService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*dbm.Event, error) {
	st := dbm.EventStatus(status)
	if !st.Valid() {
		return nil, validationf("unknown status %q", status)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.eventRepo.Update(ctx, id, map[string]interface{}{"status": st}); err != nil {
		return nil, storeErr(err, "event")
	}
	return s.Get(ctx, id)
}

// SetPhase2 toggles phase 2 for one event. Turning it on turns it off for
// every other event.
func (s *EventService) SetPhase2(ctx context.Context, id uuid.UUID, active bool) (*dbm.Event, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var err error
	if active {
		err = s.eventRepo.ActivatePhase2(ctx, id, utils.NowUnixSeconds())
	} else {
		err = s.eventRepo.Update(ctx, id, map[string]interface{}{"is_phase2_active": false})
	}
	if err != nil {
		return nil, storeErr(err, "event")
	}
	s.log.Info("phase 2 toggled", zap.String("event_id", id.String()), zap.Bool("active", active))
	return s.Get(ctx, id)
}

// Active returns the event currently running phase 2, or nil if none is.
func (s *EventService) Active(ctx context.Context) (*dbm.Event, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	event, err := s.eventRepo.FindActive(ctx)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	return event, nil
}
