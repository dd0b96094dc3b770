package notify

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelFor_UnCanalPorNegocio(t *testing.T) {
	assert.Equal(t, "pos:events:biz-1", channelFor("biz-1"))
	assert.NotEqual(t, channelFor("biz-1"), channelFor("biz-2"),
		"cada negocio tiene su propio tópico, sin filtrar por payload")
}

func TestEvent_ContratoJSON(t *testing.T) {
	ev := Event{
		Action:          ActionClosed,
		BusinessID:      "biz-1",
		EconomicCycleID: "ec-1",
		At:              time.Date(2026, 8, 27, 23, 59, 0, 0, time.UTC),
	}

	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(payload, &back))
	assert.Equal(t, "close", back["action"])
	assert.Equal(t, "biz-1", back["businessId"])
	assert.Equal(t, "ec-1", back["economicCycleId"])
}
