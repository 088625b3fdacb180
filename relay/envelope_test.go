package relay

import (
	"encoding/json"
	"testing"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	t.Run("event", func(t *testing.T) {
		env, err := ParseEnvelope([]byte(`["EVENT","sub1",{"id":"abc","pubkey":"pk","created_at":10,"kind":1,"tags":[["e","x"]],"content":"hi","sig":"s"}]`))
		require.NoError(t, err)
		assert.Equal(t, EnvelopeEvent, env.Type)
		assert.Equal(t, "sub1", env.SubscriptionID)
		require.NotNil(t, env.Event)
		assert.Equal(t, "abc", env.Event.ID)
		assert.Equal(t, domain.Timestamp(10), env.Event.CreatedAt)
		assert.Equal(t, []domain.Tag{{"e", "x"}}, env.Event.Tags)
	})

	t.Run("eose", func(t *testing.T) {
		env, err := ParseEnvelope([]byte(`["EOSE","sub1"]`))
		require.NoError(t, err)
		assert.Equal(t, EnvelopeEOSE, env.Type)
		assert.Equal(t, "sub1", env.SubscriptionID)
	})

	t.Run("closed", func(t *testing.T) {
		env, err := ParseEnvelope([]byte(`["CLOSED","sub1","error: too many subscriptions"]`))
		require.NoError(t, err)
		assert.Equal(t, EnvelopeClosed, env.Type)
		assert.Equal(t, "sub1", env.SubscriptionID)
		assert.Equal(t, "error: too many subscriptions", env.Message)
	})

	t.Run("notice", func(t *testing.T) {
		env, err := ParseEnvelope([]byte(`["NOTICE","slow down"]`))
		require.NoError(t, err)
		assert.Equal(t, EnvelopeNotice, env.Type)
		assert.Equal(t, "slow down", env.Message)
	})

	t.Run("ok", func(t *testing.T) {
		env, err := ParseEnvelope([]byte(`["OK","abc",false,"blocked: spam"]`))
		require.NoError(t, err)
		assert.Equal(t, EnvelopeOK, env.Type)
		assert.Equal(t, "abc", env.EventID)
		assert.False(t, env.Accepted)
		assert.Equal(t, "blocked: spam", env.Message)
	})
}

func TestParseEnvelopeMalformed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":      `nope`,
		"not an array":  `{"a":1}`,
		"too short":     `["EOSE"]`,
		"unknown label": `["AUTH","challenge"]`,
		"event missing": `["EVENT","sub1"]`,
		"bad event":     `["EVENT","sub1","nope"]`,
		"ok missing":    `["OK","abc"]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(raw))
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestEncodeReq(t *testing.T) {
	data, err := encodeReq("sub1", []Filter{
		{Authors: []string{"a"}, Kinds: []domain.Kind{domain.KindTextNote}},
		ProfileFilter([]string{"a"}),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `["REQ","sub1",{"authors":["a"],"kinds":[1]},{"authors":["a"],"kinds":[0]}]`, string(data))
}

func TestEncodeCloseAndEvent(t *testing.T) {
	data, err := encodeClose("sub1")
	require.NoError(t, err)
	assert.JSONEq(t, `["CLOSE","sub1"]`, string(data))

	data, err = encodeEvent(domain.Event{ID: "abc", PubKey: "pk", CreatedAt: 5, Kind: domain.KindTextNote, Content: "hi", Sig: "s"})
	require.NoError(t, err)
	var parts []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &parts))
	require.Len(t, parts, 2)
	assert.JSONEq(t, `"EVENT"`, string(parts[0]))
	assert.JSONEq(t, `{"id":"abc","pubkey":"pk","created_at":5,"kind":1,"tags":[],"content":"hi","sig":"s"}`, string(parts[1]))
}
