package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbm "carnival/internal/models/db_models"
)

type EventFilter struct {
	Status   dbm.EventStatus
	IsActive *bool
}

type EventRepository interface {
	Create(ctx context.Context, event *dbm.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*dbm.Event, error)
	FindByName(ctx context.Context, name string) (*dbm.Event, error)
	List(ctx context.Context, filter EventFilter) ([]dbm.Event, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindActive(ctx context.Context) (*dbm.Event, error)
	// ActivatePhase2 turns phase 2 on for one event and off for every other.
	ActivatePhase2(ctx context.Context, id uuid.UUID, at int64) error
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *dbm.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*dbm.Event, error) {
	var event dbm.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) FindByName(ctx context.Context, name string) (*dbm.Event, error) {
	var event dbm.Event
	if err := r.db.WithContext(ctx).First(&event, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]dbm.Event, error) {
	q := r.db.WithContext(ctx).Model(&dbm.Event{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	var events []dbm.Event
	err := q.Order("start_date DESC").Find(&events).Error
	return events, err
}

func (r *eventRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&dbm.Event{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&dbm.Event{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *eventRepository) FindActive(ctx context.Context) (*dbm.Event, error) {
	var event dbm.Event
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_phase2_active = ? AND is_active = ?", dbm.EventActive, true, true).
		Order("phase2_start_date DESC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) ActivatePhase2(ctx context.Context, id uuid.UUID, at int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&dbm.Event{}).
			Where("id <> ? AND is_phase2_active = ?", id, true).
			Update("is_phase2_active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&dbm.Event{}).Where("id = ?", id).Updates(map[string]interface{}{
			"is_phase2_active":  true,
			"phase2_start_date": at,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
