package auditlog_test

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/vron/connector-hub/internal/auditlog"
	"bitbucket.org/vron/connector-hub/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestSameReferenceUpsertsSingleRecordWithAttemptCounter(t *testing.T) {
	memory := store.NewMemory()
	sink := auditlog.New(memory, testLogger(), 8)

	sink.Log(store.Record{ExternalReference: "ext-1", Status: store.StatusPending})
	sink.Log(store.Record{
		ExternalReference:  "ext-1",
		Status:             store.StatusCompleteAccepted,
		ConfirmationNumber: "CFM-1",
	})
	sink.Close()

	record, ok := memory.AuditRecord("ext-1")
	require.True(t, ok)
	assert.Equal(t, 1, record.Attempts)
	assert.Equal(t, store.StatusCompleteAccepted, record.Status)
	assert.Equal(t, "CFM-1", record.ConfirmationNumber)
}

type failingAuditLog struct{}

func (failingAuditLog) Upsert(context.Context, store.Record) error {
	return errors.New("database gone")
}

func TestWriteFailuresAreSwallowed(t *testing.T) {
	sink := auditlog.New(failingAuditLog{}, testLogger(), 8)

	assert.NotPanics(t, func() {
		sink.Log(store.Record{ExternalReference: "ext-1", Status: store.StatusPending})
		sink.Close()
	})
}

func TestLogAfterCloseIsASafeDrop(t *testing.T) {
	memory := store.NewMemory()
	sink := auditlog.New(memory, testLogger(), 8)
	sink.Close()

	assert.NotPanics(t, func() {
		sink.Log(store.Record{ExternalReference: "ext-late", Status: store.StatusPending})
	})

	_, ok := memory.AuditRecord("ext-late")
	assert.False(t, ok)
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	memory := store.NewMemory()
	sink := auditlog.New(memory, testLogger(), 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			sink.Log(store.Record{ExternalReference: "ext-1", Status: store.StatusPending})
		}
		close(done)
	}()

	<-done
	sink.Close()
}
