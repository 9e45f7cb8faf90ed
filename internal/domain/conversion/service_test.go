package conversion

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartline-electric/backoffice/internal/domain/estimates"
	"github.com/hartline-electric/backoffice/internal/domain/jobs"
	"github.com/hartline-electric/backoffice/internal/domain/stage"
)

// fakeStore holds the conversion write set in memory. fakeRunner gives it
// transaction semantics: fn runs against a copy and the copy replaces the
// original only when fn succeeds.
type fakeStore struct {
	estimate  *estimates.Estimate
	summaries []estimates.StageSummary

	jobs      []jobs.Job
	stages    []jobs.JobStage
	vendors   map[string]int64
	entries   []jobs.MaterialEntry
	permits   []jobs.PermitItem
	roomSpecs []jobs.RoomSpecification

	nextID int64

	failOn string
}

func (f *fakeStore) clone() *fakeStore {
	c := *f
	if f.estimate != nil {
		e := *f.estimate
		c.estimate = &e
	}
	c.jobs = append([]jobs.Job(nil), f.jobs...)
	c.stages = append([]jobs.JobStage(nil), f.stages...)
	c.entries = append([]jobs.MaterialEntry(nil), f.entries...)
	c.permits = append([]jobs.PermitItem(nil), f.permits...)
	c.roomSpecs = append([]jobs.RoomSpecification(nil), f.roomSpecs...)
	c.vendors = map[string]int64{}
	for k, v := range f.vendors {
		c.vendors[k] = v
	}
	return &c
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) fail(method string) error {
	if f.failOn == method {
		return errors.New(method + " failed")
	}
	return nil
}

func (f *fakeStore) EstimateWithDetails(_ context.Context, id int64) (*estimates.Estimate, error) {
	if f.estimate == nil || f.estimate.ID != id {
		return nil, nil
	}
	e := *f.estimate
	return &e, nil
}

func (f *fakeStore) EstimateStageSummaries(_ context.Context, _ int64) ([]estimates.StageSummary, error) {
	return f.summaries, nil
}

func (f *fakeStore) MaxNumericJobNumber(_ context.Context) (int64, bool, error) {
	var max int64
	found := false
	for _, j := range f.jobs {
		n, err := strconv.ParseInt(j.JobNumber, 10, 64)
		if err != nil {
			continue
		}
		if !found || n > max {
			max, found = n, true
		}
	}
	return max, found, nil
}

func (f *fakeStore) InsertJob(_ context.Context, j jobs.Job) (int64, error) {
	if err := f.fail("InsertJob"); err != nil {
		return 0, err
	}
	j.ID = f.id()
	f.jobs = append(f.jobs, j)
	return j.ID, nil
}

func (f *fakeStore) InsertJobStage(_ context.Context, s jobs.JobStage) (int64, error) {
	if err := f.fail("InsertJobStage"); err != nil {
		return 0, err
	}
	s.ID = f.id()
	f.stages = append(f.stages, s)
	return s.ID, nil
}

func (f *fakeStore) FindJobStage(_ context.Context, jobID int64, stageName string) (int64, bool, error) {
	for _, s := range f.stages {
		if s.JobID == jobID && s.StageName == stageName {
			return s.ID, true, nil
		}
	}
	return 0, false, nil
}

func (f *fakeStore) FindVendor(_ context.Context, name string) (int64, bool, error) {
	id, ok := f.vendors[name]
	return id, ok, nil
}

func (f *fakeStore) InsertVendor(_ context.Context, name string) (int64, error) {
	id := f.id()
	f.vendors[name] = id
	return id, nil
}

func (f *fakeStore) InsertMaterialEntry(_ context.Context, e jobs.MaterialEntry) error {
	if err := f.fail("InsertMaterialEntry"); err != nil {
		return err
	}
	e.ID = f.id()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) InsertPermitItem(_ context.Context, p jobs.PermitItem) error {
	if err := f.fail("InsertPermitItem"); err != nil {
		return err
	}
	p.ID = f.id()
	f.permits = append(f.permits, p)
	return nil
}

func (f *fakeStore) InsertRoomSpecification(_ context.Context, s jobs.RoomSpecification) error {
	if err := f.fail("InsertRoomSpecification"); err != nil {
		return err
	}
	s.ID = f.id()
	f.roomSpecs = append(f.roomSpecs, s)
	return nil
}

func (f *fakeStore) MarkEstimateConverted(_ context.Context, estimateID, jobID int64, at time.Time) error {
	if f.estimate == nil || f.estimate.ID != estimateID {
		return errors.New("estimate vanished")
	}
	f.estimate.Status = estimates.StatusConverted
	f.estimate.ConvertedToJobID = &jobID
	f.estimate.ConvertedDate = &at
	return nil
}

type fakeRunner struct{ store *fakeStore }

func (r *fakeRunner) InTx(_ context.Context, fn func(Store) error) error {
	attempt := r.store.clone()
	if err := fn(attempt); err != nil {
		return err
	}
	*r.store = *attempt
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func approvedEstimate() *estimates.Estimate {
	return &estimates.Estimate{
		ID:             10,
		EstimateNumber: "EST-1001",
		Version:        2,
		CustomerID:     5,
		JobName:        "Miller renovation",
		Address:        "12 Shore Rd",
		City:           "Ocean City",
		State:          "NJ",
		Zip:            "08226",
		Status:         estimates.StatusApproved,
		LaborRate:      dec("75"),
		MaterialMarkup: dec("22"),
		TaxRate:        dec("0.064"),
		Rooms: []estimates.Room{{
			ID:   1,
			Name: "Kitchen",
			Items: []estimates.LineItem{
				{ItemCode: "hh", Description: "High hat", Quantity: 2, UnitPrice: dec("15"), LaborMinutes: 40},
				{ItemCode: "romex", Description: "12/2 Romex", Quantity: 10, UnitPrice: dec("0.80"), LaborMinutes: 6},
			},
		}},
	}
}

func newFixture(e *estimates.Estimate) (*Service, *fakeStore) {
	store := &fakeStore{estimate: e, vendors: map[string]int64{}}
	svc := NewService(&fakeRunner{store: store}, slog.New(slog.DiscardHandler))
	return svc, store
}

func TestConvertGuards(t *testing.T) {
	t.Run("estimate not found", func(t *testing.T) {
		svc, _ := newFixture(approvedEstimate())
		_, err := svc.Convert(context.Background(), 999, Options{})
		assert.ErrorIs(t, err, ErrEstimateNotFound)
	})

	t.Run("not approved", func(t *testing.T) {
		for _, status := range []estimates.Status{
			estimates.StatusDraft, estimates.StatusSent,
			estimates.StatusRejected, estimates.StatusExpired,
		} {
			e := approvedEstimate()
			e.Status = status
			svc, store := newFixture(e)

			_, err := svc.Convert(context.Background(), e.ID, Options{})
			assert.ErrorIs(t, err, ErrNotApproved, "status %s", status)
			assert.Empty(t, store.jobs)
		}
	})

	t.Run("already converted", func(t *testing.T) {
		e := approvedEstimate()
		jobID := int64(3)
		e.ConvertedToJobID = &jobID
		svc, store := newFixture(e)

		_, err := svc.Convert(context.Background(), e.ID, Options{})
		assert.ErrorIs(t, err, ErrAlreadyConverted)
		assert.Empty(t, store.jobs)
	})
}

func TestConvert(t *testing.T) {
	svc, store := newFixture(approvedEstimate())

	job, err := svc.Convert(context.Background(), 10, Options{})
	require.NoError(t, err)

	assert.Equal(t, "401", job.JobNumber)
	assert.Equal(t, jobs.StatusInProgress, job.Status)
	assert.Equal(t, "Created from Estimate #EST-1001 v2", job.Notes)
	require.NotNil(t, job.EstimateID)
	assert.Equal(t, int64(10), *job.EstimateID)

	// 140 min labor -> $175; $38 material +22% -> $46.36; +6.4% tax.
	require.NotNil(t, job.TotalEstimate)
	assert.True(t, job.TotalEstimate.Equal(dec("235.53")), "total %s", job.TotalEstimate)

	// Estimate flipped inside the same transaction.
	assert.Equal(t, estimates.StatusConverted, store.estimate.Status)
	require.NotNil(t, store.estimate.ConvertedToJobID)
	assert.Equal(t, job.ID, *store.estimate.ConvertedToJobID)

	// No stored summaries: stages derived from the line items.
	require.Len(t, store.stages, 2)
	assert.Equal(t, stage.Rough, store.stages[0].StageName)
	assert.Equal(t, stage.Finish, store.stages[1].StageName)
	assert.True(t, store.stages[0].EstimatedHours.Equal(dec("1")))
	assert.True(t, store.stages[0].ActualHours.IsZero())

	// One aggregated material entry per stage, booked to the default vendor.
	require.Len(t, store.entries, 2)
	vendorID, ok := store.vendors[DefaultVendorName]
	require.True(t, ok, "default vendor created lazily")
	for _, entry := range store.entries {
		assert.Equal(t, job.ID, entry.JobID)
		assert.Equal(t, vendorID, entry.VendorID)
	}
	assert.True(t, store.entries[0].Cost.Equal(dec("30")), "finish cost %s", store.entries[0].Cost)
	assert.Equal(t, "Initial material allocation from estimate - Finish stage", store.entries[0].Notes)
	assert.True(t, store.entries[1].Cost.Equal(dec("8")), "rough cost %s", store.entries[1].Cost)

	// Permits and room specs are opt-in.
	assert.Empty(t, store.permits)
	assert.Empty(t, store.roomSpecs)
}

func TestConvertUsesStoredSummaries(t *testing.T) {
	e := approvedEstimate()
	svc, store := newFixture(e)
	store.summaries = []estimates.StageSummary{
		{EstimateID: e.ID, Stage: stage.Rough, LaborMinutes: 60, LaborHours: dec("1"), MaterialCost: dec("8"), StageOrder: 1},
		{EstimateID: e.ID, Stage: stage.Finish, LaborMinutes: 120, LaborHours: dec("2"), MaterialCost: dec("30"), StageOrder: 3},
	}

	_, err := svc.Convert(context.Background(), e.ID, Options{})
	require.NoError(t, err)

	require.Len(t, store.stages, 2)
	assert.True(t, store.stages[1].EstimatedHours.Equal(dec("2")))
	assert.True(t, store.stages[1].EstimatedMaterialCost.Equal(dec("30")))
}

func TestConvertJobNumberSequence(t *testing.T) {
	svc, store := newFixture(approvedEstimate())
	store.jobs = []jobs.Job{
		{JobNumber: "450"},
		{JobNumber: "T-99"}, // non-numeric numbers don't participate
	}

	job, err := svc.Convert(context.Background(), 10, Options{})
	require.NoError(t, err)
	assert.Equal(t, "451", job.JobNumber)
}

func TestConvertReusesExistingVendor(t *testing.T) {
	svc, store := newFixture(approvedEstimate())
	store.vendors[DefaultVendorName] = 77

	_, err := svc.Convert(context.Background(), 10, Options{})
	require.NoError(t, err)
	for _, entry := range store.entries {
		assert.Equal(t, int64(77), entry.VendorID)
	}
}

func TestConvertPermitItems(t *testing.T) {
	e := approvedEstimate()
	e.Rooms[0].Items = append(e.Rooms[0].Items,
		estimates.LineItem{ItemCode: "s", Description: "Switch", Quantity: 6, UnitPrice: dec("3"), LaborMinutes: 10},
		estimates.LineItem{ItemCode: "gfi", Description: "GFCI", Quantity: 2, UnitPrice: dec("18"), LaborMinutes: 15},
	)
	svc, store := newFixture(e)

	_, err := svc.Convert(context.Background(), e.ID, Options{CreatePermitItems: true})
	require.NoError(t, err)

	require.Len(t, store.permits, 3)
	assert.Equal(t, stage.PermitSwitches, store.permits[0].Category)
	assert.Equal(t, 6, store.permits[0].Quantity)
	assert.Equal(t, stage.PermitLights, store.permits[1].Category)
	assert.Equal(t, 2, store.permits[1].Quantity)
	assert.Equal(t, stage.PermitGFCI, store.permits[2].Category)
	assert.Equal(t, 2, store.permits[2].Quantity)
	for _, p := range store.permits {
		assert.Equal(t, "Auto-generated from estimate conversion", p.Description)
	}
}

func TestConvertRoomSpecifications(t *testing.T) {
	svc, store := newFixture(approvedEstimate())

	_, err := svc.Convert(context.Background(), 10, Options{CreateRoomSpecifications: true})
	require.NoError(t, err)

	require.Len(t, store.roomSpecs, 2)
	first := store.roomSpecs[0]
	assert.Equal(t, "Kitchen", first.RoomName)
	assert.Equal(t, "High hat", first.ItemDescription)
	assert.Equal(t, 2, first.Quantity)
	assert.True(t, first.TotalPrice.Equal(dec("30")))
}

func TestConvertRollsBackOnFailure(t *testing.T) {
	svc, store := newFixture(approvedEstimate())
	store.failOn = "InsertMaterialEntry"

	_, err := svc.Convert(context.Background(), 10, Options{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotApproved)

	// Nothing from the failed attempt survives.
	assert.Empty(t, store.jobs)
	assert.Empty(t, store.stages)
	assert.Empty(t, store.entries)
	assert.Empty(t, store.vendors)
	assert.Equal(t, estimates.StatusApproved, store.estimate.Status)
	assert.Nil(t, store.estimate.ConvertedToJobID)

	// The estimate is untouched, so a retry goes through.
	store.failOn = ""
	job, err := svc.Convert(context.Background(), 10, Options{})
	require.NoError(t, err)
	assert.Equal(t, "401", job.JobNumber)
}

func TestConvertSecondAttemptRejected(t *testing.T) {
	svc, store := newFixture(approvedEstimate())

	first, err := svc.Convert(context.Background(), 10, Options{})
	require.NoError(t, err)

	_, err = svc.Convert(context.Background(), 10, Options{})
	assert.ErrorIs(t, err, ErrAlreadyConverted)
	require.Len(t, store.jobs, 1)
	assert.Equal(t, first.JobNumber, store.jobs[0].JobNumber)
}
