package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisearch/ingest/internal/fault"
)

func TestDecodeWorkItem_Valid(t *testing.T) {
	body := []byte(`{
		"eventType": "ObjectCreated",
		"sourceLocator": "documents/road/ts-server1/bridge-survey.pdf",
		"sizeBytes": 204800,
		"receivedAt": "2025-11-02T09:15:00Z",
		"metadata": {"mimeType": "application/pdf"}
	}`)

	item, err := decodeWorkItem("msg-42", body, 1)
	require.NoError(t, err)

	assert.Equal(t, "msg-42", item.ID)
	assert.Equal(t, "documents/road/ts-server1/bridge-survey.pdf", item.SourceLocator)
	assert.Equal(t, int64(204800), item.SizeBytes)
	assert.Equal(t, "application/pdf", item.ContentType)
	assert.Equal(t, time.Date(2025, 11, 2, 9, 15, 0, 0, time.UTC), item.ReceivedAt)
	assert.Equal(t, 1, item.AttemptCount)
}

func TestDecodeWorkItem_MissingMessageID_GeneratesOne(t *testing.T) {
	body := []byte(`{"sourceLocator": "a.pdf", "sizeBytes": 1}`)

	item, err := decodeWorkItem("", body, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
}

func TestDecodeWorkItem_MalformedJSON_InvalidFault(t *testing.T) {
	_, err := decodeWorkItem("id", []byte("{not json"), 1)
	require.Error(t, err)
	assert.Equal(t, fault.Invalid, fault.KindOf(err))
}

func TestDecodeWorkItem_MissingLocator_InvalidFault(t *testing.T) {
	_, err := decodeWorkItem("id", []byte(`{"sizeBytes": 10}`), 1)
	require.Error(t, err)
	assert.Equal(t, fault.Invalid, fault.KindOf(err))
}

func TestDecodeWorkItem_NegativeSize_InvalidFault(t *testing.T) {
	_, err := decodeWorkItem("id", []byte(`{"sourceLocator": "a", "sizeBytes": -1}`), 1)
	require.Error(t, err)
	assert.Equal(t, fault.Invalid, fault.KindOf(err))
}
