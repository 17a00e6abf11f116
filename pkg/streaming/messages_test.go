package streaming

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/vehiclectl/pkg/core"
)

func TestMarshal_Frame(t *testing.T) {
	data, err := Marshal(TypeFrame, core.Frame{Step: 42, Gear: core.GearReverse, SimTime: time.Second})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeFrame, env.Type)

	var f core.Frame
	require.NoError(t, json.Unmarshal(env.Payload, &f))
	assert.Equal(t, uint64(42), f.Step)
	assert.Equal(t, core.GearReverse, f.Gear)
	assert.Equal(t, time.Second, f.SimTime)
}

func TestMarshal_NilPayload(t *testing.T) {
	data, err := Marshal(TypeEndSession, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"end_session","payload":null}`, string(data))
}

func TestMarshal_Unsupported(t *testing.T) {
	_, err := Marshal(TypeFrame, make(chan int))
	assert.Error(t, err)
}

func TestAckMessage(t *testing.T) {
	var ack AckMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ack","for":"start_session"}`), &ack))
	assert.Equal(t, TypeAck, ack.Type)
	assert.Equal(t, TypeStartSession, ack.For)
}
