package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbm "carnival/internal/models/db_models"
	"carnival/internal/models/request_models"
	"carnival/pkg/utils"
)

func eventRequest(name, status string) request_models.CreateEventRequest {
	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	return request_models.CreateEventRequest{
		Name:      name,
		StartDate: start,
		EndDate:   start.Add(48 * time.Hour),
		Status:    status,
	}
}

func TestCreateEventDefaultsAndConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.events.Create(ctx, eventRequest(" Onam Mela ", ""))
	require.NoError(t, err)
	assert.Equal(t, "Onam Mela", event.Name)
	assert.Equal(t, dbm.EventUpcoming, event.Status)
	assert.Equal(t, int64(dbm.DefaultEventMaxPoints), event.MaxPoints)
	assert.True(t, event.IsActive)
	assert.Equal(t, int64(48*3600), event.EndDate-event.StartDate)

	_, err = f.events.Create(ctx, eventRequest("Onam Mela", ""))
	assert.ErrorIs(t, err, utils.ErrConflict)

	backwards := eventRequest("Vishu", "")
	backwards.StartDate, backwards.EndDate = backwards.EndDate, backwards.StartDate
	_, err = f.events.Create(ctx, backwards)
	assert.ErrorIs(t, err, utils.ErrValidation)

	negative := eventRequest("Pooram", "")
	minus := int64(-5)
	negative.MaxPoints = &minus
	_, err = f.events.Create(ctx, negative)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestUpdateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.events.Create(ctx, eventRequest("First", ""))
	require.NoError(t, err)
	_, err = f.events.Create(ctx, eventRequest("Second", ""))
	require.NoError(t, err)

	taken := "Second"
	_, err = f.events.Update(ctx, first.ID, request_models.UpdateEventRequest{Name: &taken})
	assert.ErrorIs(t, err, utils.ErrConflict)

	same := "First"
	location := "Temple grounds"
	updated, err := f.events.Update(ctx, first.ID, request_models.UpdateEventRequest{Name: &same, Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Temple grounds", updated.Location)

	early := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.events.Update(ctx, first.ID, request_models.UpdateEventRequest{EndDate: &early})
	assert.ErrorIs(t, err, utils.ErrValidation)

	_, err = f.events.Update(ctx, uuid.New(), request_models.UpdateEventRequest{Location: &location})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestEventStatusAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event, err := f.events.Create(ctx, eventRequest("Carnival", ""))
	require.NoError(t, err)

	updated, err := f.events.SetStatus(ctx, event.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, dbm.EventCompleted, updated.Status)

	_, err = f.events.SetStatus(ctx, event.ID, "paused")
	assert.ErrorIs(t, err, utils.ErrValidation)

	listed, err := f.events.List(ctx, EventListQuery{Status: "completed"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	listed, err = f.events.List(ctx, EventListQuery{Status: "upcoming"})
	require.NoError(t, err)
	assert.Empty(t, listed)

	require.NoError(t, f.events.Delete(ctx, event.ID))
	_, err = f.events.Get(ctx, event.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.ErrorIs(t, f.events.Delete(ctx, event.ID), utils.ErrNotFound)
}

func TestPhase2IsExclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.events.Create(ctx, eventRequest("Day one", "active"))
	require.NoError(t, err)
	b, err := f.events.Create(ctx, eventRequest("Day two", "active"))
	require.NoError(t, err)

	active, err := f.events.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	on, err := f.events.SetPhase2(ctx, a.ID, true)
	require.NoError(t, err)
	assert.True(t, on.IsPhase2Active)
	require.NotNil(t, on.Phase2StartDate)

	_, err = f.events.SetPhase2(ctx, b.ID, true)
	require.NoError(t, err)
	first, err := f.events.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, first.IsPhase2Active)

	active, err = f.events.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, b.ID, active.ID)

	_, err = f.events.SetPhase2(ctx, b.ID, false)
	require.NoError(t, err)
	active, err = f.events.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	_, err = f.events.SetPhase2(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
