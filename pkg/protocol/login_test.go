package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestLoginRequestFixedSteps(t *testing.T) {
	tests := []struct {
		step int
		want string
	}{
		{StepOptions, "080210c801a201080a04080310061801"},
		{StepConfiguration, "080210c801f201080a04080310061001"},
		{StepSetActive, "120308ee04"},
		{0, ""},
		{6, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LoginRequest(tt.step, 0), "step %d", tt.step)
	}
}

func TestLoginRequestPairingRequest(t *testing.T) {
	id := Identity{ServiceName: "svc", ClientName: "living room"}
	payload := id.LoginRequest(StepPairingRequest, 0)
	require.True(t, strings.HasPrefix(payload, PairingEnvelope+"52"))

	fields, err := ParseFields(Encode(payload))
	require.NoError(t, err)
	req, ok := Lookup(fields, 10)
	require.True(t, ok)

	inner, err := ParseFields(req.Bytes)
	require.NoError(t, err)
	service, _ := Lookup(inner, 1)
	client, _ := Lookup(inner, 2)
	assert.Equal(t, "svc", service.String())
	assert.Equal(t, "living room", client.String())
}

func TestLoginRequestConfigureEchoesMessageID(t *testing.T) {
	// 08 ff 04 is message id 639
	payload := LoginRequest(StepConfigure, 639)
	require.True(t, strings.HasPrefix(payload, OpConfigure))

	num, body, err := Unwrap(Encode(payload))
	require.NoError(t, err)
	assert.Equal(t, protowire.Number(1), num)
	assert.True(t, strings.HasPrefix(Decode(body), "08fe04"), "id-1 varint, got %s", Decode(body))
	assert.Equal(t, uint64(638), MessageID(body))

	fields, err := ParseFields(body)
	require.NoError(t, err)
	info, ok := Lookup(fields, 2)
	require.True(t, ok)
	infoFields, err := ParseFields(info.Bytes)
	require.NoError(t, err)
	model, _ := Lookup(infoFields, 1)
	assert.Equal(t, DefaultIdentity.Model, model.String())
}

func TestLoginRequestConfigureZeroID(t *testing.T) {
	payload := LoginRequest(StepConfigure, 0)
	_, body, err := Unwrap(Encode(payload))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), MessageID(body))
}

func TestPinRequest(t *testing.T) {
	t.Run("sentinel", func(t *testing.T) {
		assert.Equal(t, LoginRequest(StepConfiguration, 0), PinRequest(PinRequestSentinel))
	})

	t.Run("digest", func(t *testing.T) {
		digest := strings.Repeat("ab", 32)
		got := PinRequest(digest)
		assert.Equal(t, PairingSecret+"220a20"+digest, got)
	})

	t.Run("odd digest is padded", func(t *testing.T) {
		assert.Equal(t, PairingSecret+"040a020abc", PinRequest("abc"))
	})

	t.Run("oversized digest", func(t *testing.T) {
		assert.Empty(t, PinRequest(strings.Repeat("00", 300)))
	})
}

func TestKeepAliveReply(t *testing.T) {
	tests := []struct {
		name    string
		request string
		want    string
	}{
		{"device ping", "420608cf0410e601", "4a0308cf04"},
		{"trailing bytes beyond length", "420608cf0410e601ffff", "4a0308cf04"},
		{"no delimiter", "42030801ff", "4a030801ff"},
		{"delimiter inside varint", "4204081010e6", "4a020810"},
		{"upper case", "420608CF0410E601", "4a0308cf04"},
		{"not a ping", "c202020801", "4a00"},
		{"empty", "", "4a00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeepAliveReply(tt.request)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, KeepAliveReply(tt.request), "reply must be stable")
			assert.True(t, strings.HasPrefix(got, OpPingResponse))
		})
	}
}
