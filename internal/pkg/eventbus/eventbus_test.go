package eventbus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/event/mocks"
	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/tax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var ts = time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

func calculatedEvent() event.SocialInsuranceCalculated {
	return event.SocialInsuranceCalculated{EmployeeID: "emp-1", PeriodID: "p-1", Timestamp: ts}
}

func TestHub_DeliversByType(t *testing.T) {
	hub := NewHub(4)
	ctx := context.Background()

	single, closeSingle := hub.Subscribe(event.TypeSocialInsuranceCalculated)
	defer closeSingle()
	all, closeAll := hub.Subscribe()
	defer closeAll()

	require.NoError(t, hub.Publish(ctx, calculatedEvent()))
	require.NoError(t, hub.Publish(ctx, event.PersonalIncomeTaxImported{PeriodID: "p-1", Timestamp: ts}))

	assert.Len(t, single, 1)
	assert.Len(t, all, 2)
	got := <-single
	assert.Equal(t, event.TypeSocialInsuranceCalculated, got.EventType())
}

func TestHub_SubscriberForSeveralTypesGetsEachEventOnce(t *testing.T) {
	hub := NewHub(4)
	ch, cleanup := hub.Subscribe(event.TypeSocialInsuranceCalculated, event.TypeSocialInsuranceCalculated)
	defer cleanup()

	require.NoError(t, hub.Publish(context.Background(), calculatedEvent()))
	assert.Len(t, ch, 1)
}

func TestHub_FullSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1)
	_, cleanup := hub.Subscribe()
	defer cleanup()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			_ = hub.Publish(context.Background(), calculatedEvent())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, int64(4), hub.Dropped())
}

func TestHub_CleanupRemovesSubscriber(t *testing.T) {
	hub := NewHub(1)
	ch, cleanup := hub.Subscribe(event.TypePersonalIncomeTaxImported)
	assert.Equal(t, 1, hub.SubscriberCount(event.TypePersonalIncomeTaxImported))

	cleanup()
	cleanup()
	assert.Equal(t, 0, hub.SubscriberCount(event.TypePersonalIncomeTaxImported))
	_, open := <-ch
	assert.False(t, open)
}

func TestMultiPublisher_JoinsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	first := mocks.NewMockPublisher(ctrl)
	second := mocks.NewMockPublisher(ctrl)

	e := calculatedEvent()
	first.EXPECT().Publish(gomock.Any(), e).Return(errors.New("broker down"))
	second.EXPECT().Publish(gomock.Any(), e).Return(nil)

	err := MultiPublisher{first, second}.Publish(context.Background(), e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestEncodeRecord(t *testing.T) {
	e := event.PersonalIncomeTaxImported{
		PeriodID:  "p-1",
		Summary:   tax.ImportSummary{TotalRecords: 3, SuccessCount: 2, ErrorCount: 1},
		Timestamp: ts,
	}

	record, err := encodeRecord(e)
	require.NoError(t, err)
	assert.Equal(t, "p-1", string(record.Key))
	require.Len(t, record.Headers, 1)
	assert.Equal(t, string(event.TypePersonalIncomeTaxImported), string(record.Headers[0].Value))

	var env Envelope
	require.NoError(t, json.Unmarshal(record.Value, &env))
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, event.TypePersonalIncomeTaxImported, env.Type)
	assert.True(t, env.OccurredAt.Equal(ts))

	var payload event.PersonalIncomeTaxImported
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, 2, payload.Summary.SuccessCount)
}

func TestAuditLogger_Run(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	audit := NewAuditLogger(logger)

	hub := NewHub(4)
	ch, cleanup := hub.Subscribe()
	require.NoError(t, hub.Publish(context.Background(), event.BatchSocialInsuranceCalculated{
		BatchID:   "batch-1",
		Summary:   event.BatchSummary{SuccessCount: 8, ErrorCount: 2},
		Timestamp: ts,
	}))
	cleanup()

	audit.Run(context.Background(), ch)

	out := buf.String()
	assert.Contains(t, out, `"type":"social_insurance.batch_calculated"`)
	assert.Contains(t, out, `"success_count":8`)
	assert.Contains(t, out, `"component":"audit"`)
}
