package session_test

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/gtv-remote/gtv-go/pkg/cert"
	"github.com/gtv-remote/gtv-go/pkg/connection"
	"github.com/gtv-remote/gtv-go/pkg/pairing"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
	"github.com/gtv-remote/gtv-go/pkg/session"
	"github.com/gtv-remote/gtv-go/pkg/session/mocks"
	"github.com/gtv-remote/gtv-go/pkg/transport"
)

// configureFrame builds a remote configure message with a device
// descriptor.
func configureFrame(id uint64, model, vendor string) string {
	var desc []byte
	desc = protowire.AppendTag(desc, 1, protowire.BytesType)
	desc = protowire.AppendString(desc, model)
	desc = protowire.AppendTag(desc, 2, protowire.BytesType)
	desc = protowire.AppendString(desc, vendor)
	desc = protowire.AppendTag(desc, 4, protowire.BytesType)
	desc = protowire.AppendString(desc, "11")
	desc = protowire.AppendTag(desc, 5, protowire.BytesType)
	desc = protowire.AppendString(desc, "com.nvidia.remote")
	desc = protowire.AppendTag(desc, 6, protowire.BytesType)
	desc = protowire.AppendString(desc, "5.2.0")

	var body []byte
	body = protowire.AppendTag(body, 1, protowire.VarintType)
	body = protowire.AppendVarint(body, id)
	body = protowire.AppendTag(body, 2, protowire.BytesType)
	body = protowire.AppendBytes(body, desc)

	msg := protowire.AppendTag(nil, 1, protowire.BytesType)
	return protocol.Decode(protowire.AppendBytes(msg, body))
}

// volumeFrame builds a set volume level push.
func volumeFrame(max, level uint64, muted bool) string {
	var body []byte
	body = protowire.AppendTag(body, 3, protowire.BytesType)
	body = protowire.AppendString(body, "speaker")
	body = protowire.AppendTag(body, 6, protowire.VarintType)
	body = protowire.AppendVarint(body, max)
	body = protowire.AppendTag(body, 7, protowire.VarintType)
	body = protowire.AppendVarint(body, level)
	body = protowire.AppendTag(body, 8, protowire.VarintType)
	body = protowire.AppendVarint(body, protowire.EncodeBool(muted))

	msg := protowire.AppendTag(nil, 50, protowire.BytesType)
	return protocol.Decode(protowire.AppendBytes(msg, body))
}

// pairingFrame builds a pairing message from the device with an empty
// body in field num.
func pairingFrame(status uint64, num protowire.Number) string {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 2)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, status)
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, nil)
	return protocol.Decode(b)
}

const setActiveFrame = "120308ee04"

func remoteAddr(port int) string {
	return net.JoinHostPort(testHost, strconv.Itoa(port))
}

// connected creates a remote session connected through nw.
func connected(t *testing.T, nw *fakeNetwork, cb *mocks.MockCallback) (*session.Session, *fakeConn) {
	t.Helper()
	s, err := session.New(newTestConfig(nw), cb, nil)
	require.NoError(t, err)
	t.Cleanup(s.Dispose)
	require.NoError(t, s.Connect())
	return s, nw.last()
}

func TestHandshakeReportsDescriptorAndEchoesConfigure(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	cb.EXPECT().UpdateProperty(session.PropertyModel, "SHIELD Android TV").Return().Once()
	cb.EXPECT().UpdateProperty(session.PropertyManufacturer, "NVIDIA").Return().Once()
	allowUpdates(cb)

	s, conn := connected(t, nw, cb)
	assert.Equal(t, session.StateHandshaking, s.State())

	conn.push(configureFrame(639, "SHIELD Android TV", "NVIDIA"))
	step4 := conn.expectWrite(t, func(h string) bool { return strings.HasPrefix(h, protocol.OpConfigure) })
	assert.Contains(t, step4, "08fe04", "configure echo carries the previous message id minus one")
	assert.Equal(t, session.StateLoggingIn, s.State())

	d := s.Device()
	assert.Equal(t, "SHIELD Android TV", d.Model)
	assert.Equal(t, "NVIDIA", d.Manufacturer)
	assert.Equal(t, "11", d.AndroidVersion)
	assert.Equal(t, "5.2.0", d.RemoteServerVersion)
}

func TestSetActiveLogsIn(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	online := make(chan struct{}, 1)
	cb.EXPECT().UpdateStatus(session.StatusOnline, session.DetailNone, mock.Anything).Run(
		func(session.Status, session.StatusDetail, string) { online <- struct{}{} },
	).Return().Once()
	allowUpdates(cb)

	s, conn := connected(t, nw, cb)
	conn.push(configureFrame(639, "BRAVIA", "Sony"))
	conn.push(setActiveFrame)

	conn.expectWrite(t, func(h string) bool { return strings.HasPrefix(h, protocol.OpSetActive) })
	select {
	case <-online:
	case <-time.After(waitTimeout):
		t.Fatal("no online status")
	}
	assert.Equal(t, session.StateLoggedIn, s.State())
}

func TestPowerPush(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	power := make(chan string, 2)
	cb.EXPECT().UpdateChannel(session.ChannelPower, mock.Anything).Run(func(_ string, v string) { power <- v }).Return()
	allowUpdates(cb)

	s, conn := connected(t, nw, cb)

	conn.push(protocol.PowerOnPayload)
	assert.Equal(t, session.ValueOn, <-power)
	assert.True(t, s.Device().Power)

	conn.push(protocol.PowerOffPayload)
	assert.Equal(t, session.ValueOff, <-power)
	d := s.Device()
	assert.True(t, d.PowerKnown)
	assert.False(t, d.Power)
}

func TestKeyPressFrame(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	allowUpdates(cb)
	s, conn := connected(t, nw, cb)

	require.NoError(t, s.HandleCommand(session.ChannelKeypress, "KEY_HOME_PRESS"))
	payload := conn.next(t)
	assert.Equal(t, "52040803"+"1001", payload)
	assert.Equal(t, "06520408031001", protocol.Frame(payload))

	require.NoError(t, s.HandleCommand(session.ChannelKeypress, "KEY_HOME"))
	assert.Equal(t, protocol.KeyPress(protocol.KeyHome, protocol.DirShort), conn.next(t))
}

func TestCertificateRejectedStartsPairing(t *testing.T) {
	nw := newFakeNetwork(t)
	nw.failWith(remoteAddr(6466), &transport.ConnError{
		Op:   "handshake",
		Addr: remoteAddr(6466),
		Kind: transport.KindPairingRequired,
		Err:  errors.New("remote error: tls: certificate unknown"),
	})
	sched := connection.NewManualScheduler()
	cb := newCallback(t, sched)
	rec := &statusRecorder{}
	cb.EXPECT().UpdateStatus(mock.Anything, mock.Anything, mock.Anything).Run(rec.record).Return().Maybe()
	allowUpdates(cb)

	reg := session.NewRegistry()
	s, err := session.New(newTestConfig(nw), cb, reg)
	require.NoError(t, err)
	t.Cleanup(s.Dispose)

	err = s.Connect()
	require.Error(t, err)
	assert.Equal(t, transport.KindPairingRequired, transport.Classify(err))

	child, ok := reg.Get(s.ChildID())
	require.True(t, ok, "PIN session registered")
	assert.Equal(t, session.ModePin, child.Mode())
	assert.Equal(t, 6467, child.Config().Port)
	assert.Equal(t, s.ID(), child.ParentID())
	assert.Equal(t, remoteAddr(6467), nw.dialed(1))

	assert.Equal(t, 0, sched.Pending(), "no reconnect timer while pairing")
	assert.NotEqual(t, session.StateReconnectScheduled, s.State())
	assert.True(t, rec.has(session.DetailPairingRequired))

	step1 := nw.conn(0).next(t)
	assert.True(t, strings.HasPrefix(step1, protocol.PairingEnvelope), step1)
}

func TestPinFlowStoresDeviceAndReconnects(t *testing.T) {
	nw := newFakeNetwork(t)
	nw.failWith(remoteAddr(6466), &transport.ConnError{Kind: transport.KindPairingRequired, Err: errors.New("bad certificate")})
	cb := newCallback(t, connection.NewManualScheduler())
	rec := &statusRecorder{}
	cb.EXPECT().UpdateStatus(mock.Anything, mock.Anything, mock.Anything).Run(rec.record).Return().Maybe()
	allowUpdates(cb)

	reg := session.NewRegistry()
	cfg := newTestConfig(nw)
	s, err := session.New(cfg, cb, reg)
	require.NoError(t, err)
	t.Cleanup(s.Dispose)
	_ = s.Connect()

	childID := s.ChildID()
	child, ok := reg.Get(childID)
	require.True(t, ok)
	pin := nw.conn(0)
	pin.next(t) // pairing request

	pin.push(pairingFrame(pairing.StatusOK, 11))
	pin.next(t) // options
	pin.push(pairingFrame(pairing.StatusOK, 20))
	assert.Equal(t, protocol.LoginRequest(protocol.StepConfiguration, 0), pin.next(t))
	pin.push(pairingFrame(pairing.StatusOK, 31))
	waitFor(t, func() bool { return child.State() == session.StatePinPending }, "PIN pending")
	assert.True(t, rec.has(session.DetailConfigurationPending))

	code := pairing.PIN{0, 0x4b, 0x21}
	digest := pairing.Digest(code, pin.LocalCertificate(), pin.PeerCertificate())
	code[0] = digest[0]

	wrong := code
	wrong[0]++
	err = s.HandleCommand(session.ChannelPinCode, wrong.String())
	assert.ErrorIs(t, err, pairing.ErrPINMismatch)

	require.NoError(t, s.HandleCommand(session.ChannelPinCode, code.String()))
	assert.Equal(t, protocol.PinRequest(protocol.Decode(digest)), pin.next(t))

	nw.failWith(remoteAddr(6466), nil)
	pin.push(protocol.SecretMessage(protocol.PairingSecretAck, digest))

	waitFor(t, s.Connected, "parent reconnected")
	assert.Equal(t, remoteAddr(6466), nw.dialed(nw.dialCount()-1))
	assert.Empty(t, s.ChildID())
	waitFor(t, func() bool { _, ok := reg.Get(childID); return !ok }, "PIN session disposed")
	assert.True(t, child.Disposed())

	ca, err := s.Store().DeviceCA()
	require.NoError(t, err)
	assert.True(t, ca.Equal(pin.PeerCertificate()))
}

func TestPinCodeWithoutPairing(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	allowUpdates(cb)
	s, _ := connected(t, nw, cb)

	assert.ErrorIs(t, s.HandleCommand(session.ChannelPinCode, "1A2B3C"), session.ErrNoPairing)

	require.NoError(t, s.HandleCommand(session.ChannelPinCode, "request"))
	assert.NotEmpty(t, s.ChildID())
	assert.Equal(t, remoteAddr(6467), nw.dialed(nw.dialCount()-1))
}

func TestPairingRejectedReportsConfigurationError(t *testing.T) {
	nw := newFakeNetwork(t)
	nw.failWith(remoteAddr(6466), &transport.ConnError{Kind: transport.KindPairingRequired, Err: errors.New("bad certificate")})
	cb := newCallback(t, connection.NewManualScheduler())
	rec := &statusRecorder{}
	cb.EXPECT().UpdateStatus(mock.Anything, mock.Anything, mock.Anything).Run(rec.record).Return().Maybe()
	allowUpdates(cb)

	s, err := session.New(newTestConfig(nw), cb, nil)
	require.NoError(t, err)
	t.Cleanup(s.Dispose)
	_ = s.Connect()
	require.NotEmpty(t, s.ChildID())

	nw.conn(0).push(pairingFrame(pairing.StatusBadSecret, 41))
	waitFor(t, func() bool { return s.ChildID() == "" }, "PIN session ended")
	assert.True(t, rec.has(session.DetailConfigurationError))
	assert.False(t, s.Connected())
}

func TestKeepaliveTimeoutReconnectsOnce(t *testing.T) {
	nw := newFakeNetwork(t)
	sched := connection.NewManualScheduler()
	cb := newCallback(t, sched)
	allowUpdates(cb)
	s, first := connected(t, nw, cb)

	sched.Advance(session.DefaultKeepaliveTimeout - time.Second)
	assert.Equal(t, 1, nw.dialCount())

	sched.Advance(2 * time.Second)
	assert.Equal(t, 2, nw.dialCount(), "exactly one reconnect")
	assert.True(t, first.isClosed())
	assert.True(t, s.Connected())

	sched.Advance(time.Second)
	assert.Equal(t, 2, nw.dialCount())
}

func TestPingDefersKeepalive(t *testing.T) {
	nw := newFakeNetwork(t)
	sched := connection.NewManualScheduler()
	cb := newCallback(t, sched)
	allowUpdates(cb)
	_, conn := connected(t, nw, cb)

	sched.Advance(10 * time.Second)
	ping := "420508e3071005"
	conn.push(ping)
	assert.Equal(t, protocol.KeepAliveReply(ping), conn.next(t))
	assert.Equal(t, "4a0308e307", protocol.KeepAliveReply(ping))
	waitFor(t, func() bool { return sched.Pending() == 1 }, "keepalive re-armed")

	sched.Advance(14 * time.Second)
	assert.Equal(t, 1, nw.dialCount())

	sched.Advance(2 * time.Second)
	assert.Equal(t, 2, nw.dialCount())
}

func TestConnectIsNoOpWhenConnected(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	allowUpdates(cb)
	s, _ := connected(t, nw, cb)

	require.NoError(t, s.Connect())
	require.NoError(t, s.Connect())
	assert.Equal(t, 1, nw.dialCount())
}

func TestHardDropReconnectsImmediately(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	allowUpdates(cb)
	s, conn := connected(t, nw, cb)

	_ = conn.Close()
	waitFor(t, func() bool { return nw.dialCount() == 2 }, "redial after peer close")
	waitFor(t, s.Connected, "connected again")
}

func TestTransientFailureSchedulesReconnect(t *testing.T) {
	nw := newFakeNetwork(t)
	nw.failWith(remoteAddr(6466), &transport.ConnError{Kind: transport.KindTransient, Err: errors.New("connection refused")})
	sched := connection.NewManualScheduler()
	cb := newCallback(t, sched)
	rec := &statusRecorder{}
	cb.EXPECT().UpdateStatus(mock.Anything, mock.Anything, mock.Anything).Run(rec.record).Return().Maybe()

	s, err := session.New(newTestConfig(nw), cb, nil)
	require.NoError(t, err)
	t.Cleanup(s.Dispose)

	require.Error(t, s.Connect())
	assert.Equal(t, session.StateReconnectScheduled, s.State())
	assert.Equal(t, 1, sched.Pending())
	assert.True(t, rec.has(session.DetailCommunicationError))

	nw.failWith(remoteAddr(6466), nil)
	sched.Advance(session.DefaultReconnectDelay * 2)
	assert.Equal(t, 2, nw.dialCount())
	assert.True(t, s.Connected())
}

func TestHealthCheckTracksReachability(t *testing.T) {
	nw := newFakeNetwork(t)
	sched := connection.NewManualScheduler()
	cb := newCallback(t, sched)
	rec := &statusRecorder{}
	cb.EXPECT().UpdateStatus(mock.Anything, mock.Anything, mock.Anything).Run(rec.record).Return().Maybe()

	var mu sync.Mutex
	var probeErr error
	setProbe := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		probeErr = err
	}

	cfg := newTestConfig(nw)
	cfg.HealthCheckInterval = 5 * time.Second
	cfg.Probe = func(context.Context, string, time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		return probeErr
	}
	s, err := session.New(cfg, cb, nil)
	require.NoError(t, err)
	t.Cleanup(s.Dispose)
	require.NoError(t, s.Connect())
	first := nw.last()

	setProbe(errors.New("no route to host"))
	sched.Advance(5 * time.Second)
	assert.True(t, s.Offline())
	assert.True(t, rec.has(session.DetailCommunicationError))
	assert.Equal(t, 1, nw.dialCount())

	s.Disconnect(false)
	require.NoError(t, s.Connect())
	assert.Equal(t, 1, nw.dialCount(), "connect skipped while offline")

	setProbe(nil)
	sched.Advance(5 * time.Second)
	assert.False(t, s.Offline())
	assert.Equal(t, 2, nw.dialCount(), "reachable again reconnects")
	assert.True(t, first.isClosed())
	assert.True(t, s.Connected())
}

func TestReconnectDropsFramesOfClosedConnection(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	allowUpdates(cb)
	s, first := connected(t, nw, cb)

	first.failWrites(errors.New("broken pipe"))
	first.push(configureFrame(639, "SHIELD Android TV", "NVIDIA"))
	waitFor(t, func() bool { return nw.dialCount() == 2 && s.Connected() }, "reconnected after write failure")
	second := nw.last()

	require.NoError(t, s.HandleCommand(session.ChannelKeypress, "KEY_HOME"))
	assert.Equal(t, protocol.KeyPress(protocol.KeyHome, protocol.DirShort), second.next(t),
		"configure echo for the old connection is not replayed")
}

func TestReconnectKeepsKeyPresses(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	allowUpdates(cb)
	s, first := connected(t, nw, cb)

	first.failWrites(errors.New("broken pipe"))
	require.NoError(t, s.HandleCommand(session.ChannelKeypress, "KEY_HOME"))
	waitFor(t, func() bool { return nw.dialCount() == 2 && s.Connected() }, "reconnected after write failure")

	assert.Equal(t, protocol.KeyPress(protocol.KeyHome, protocol.DirShort), nw.last().next(t))
}

// lockedStore is a keystore whose password is wrong.
type lockedStore struct{ cert.MemoryStore }

func (*lockedStore) Load() error { return cert.ErrKeystoreLocked }

func TestKeystoreFailureDoesNotRetry(t *testing.T) {
	nw := newFakeNetwork(t)
	sched := connection.NewManualScheduler()
	cb := newCallback(t, sched)
	cb.EXPECT().UpdateStatus(session.StatusOffline, session.DetailConfigurationError, mock.Anything).Return().Once()

	cfg := newTestConfig(nw)
	cfg.Store = &lockedStore{}
	s, err := session.New(cfg, cb, nil)
	require.NoError(t, err)
	t.Cleanup(s.Dispose)

	assert.ErrorIs(t, s.Connect(), cert.ErrKeystoreLocked)
	assert.Equal(t, 0, nw.dialCount())
	assert.Equal(t, 0, sched.Pending())
	assert.Equal(t, session.StateDisconnected, s.State())
}

func TestRemoteErrorTearsDown(t *testing.T) {
	nw := newFakeNetwork(t)
	sched := connection.NewManualScheduler()
	cb := newCallback(t, sched)
	cb.EXPECT().UpdateStatus(session.StatusOffline, session.DetailCommunicationError, mock.Anything).Return().Once()
	allowUpdates(cb)
	s, conn := connected(t, nw, cb)

	conn.push("1a0408011002")
	waitFor(t, func() bool { return s.State() == session.StateDisconnected }, "disconnected")
	assert.False(t, s.Connected())
	assert.True(t, conn.isClosed())

	sched.Advance(time.Hour)
	assert.Equal(t, 1, nw.dialCount())
}

func TestDisposeIsIdempotent(t *testing.T) {
	nw := newFakeNetwork(t)
	sched := connection.NewManualScheduler()
	cb := newCallback(t, sched)
	allowUpdates(cb)

	reg := session.NewRegistry()
	s, err := session.New(newTestConfig(nw), cb, reg)
	require.NoError(t, err)
	require.NoError(t, s.Connect())
	conn := nw.last()
	assert.Equal(t, 1, reg.Len())

	s.Dispose()
	s.Dispose()

	assert.True(t, s.Disposed())
	assert.Equal(t, session.StateDisposed, s.State())
	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 0, s.Pending())
	assert.ErrorIs(t, s.Connect(), session.ErrSessionDisposed)
	assert.ErrorIs(t, s.HandleCommand(session.ChannelKeypress, "KEY_HOME"), session.ErrSessionDisposed)

	s.Reconnect()
	sched.Advance(time.Hour)
	assert.Equal(t, 1, nw.dialCount())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	allowUpdates(cb)
	s, conn := connected(t, nw, cb)

	s.Disconnect(false)
	s.Disconnect(true)
	s.Disconnect(true)
	assert.True(t, conn.isClosed())
	assert.False(t, s.Connected())
	assert.Equal(t, session.StateDisconnected, s.State())
	assert.ErrorIs(t, s.HandleCommand(session.ChannelKeypress, "KEY_HOME"), session.ErrNotConnected)
}

func TestCommands(t *testing.T) {
	nw := newFakeNetwork(t)
	cb := newCallback(t, connection.NewManualScheduler())
	allowUpdates(cb)
	s, conn := connected(t, nw, cb)

	key := func(code int) string { return protocol.KeyPress(code, protocol.DirShort) }

	t.Run("VolumeUnknown", func(t *testing.T) {
		assert.ErrorIs(t, s.HandleCommand(session.ChannelVolume, "50"), session.ErrVolumeUnknown)
	})

	conn.push(protocol.PowerOnPayload)
	conn.push(volumeFrame(100, 20, false))
	waitFor(t, func() bool { return s.Device().VolumeMax == 100 && s.Device().PowerKnown }, "mirrors updated")

	t.Run("PowerMatchesMirror", func(t *testing.T) {
		require.NoError(t, s.HandleCommand(session.ChannelPower, "ON"))
		require.NoError(t, s.HandleCommand(session.ChannelPower, "OFF"))
		assert.Equal(t, key(protocol.KeyPower), conn.next(t))
	})

	t.Run("MuteMatchesMirror", func(t *testing.T) {
		require.NoError(t, s.HandleCommand(session.ChannelMute, "off"))
		require.NoError(t, s.HandleCommand(session.ChannelMute, "on"))
		assert.Equal(t, key(protocol.KeyVolumeMute), conn.next(t))
	})

	t.Run("VolumePercent", func(t *testing.T) {
		require.NoError(t, s.HandleCommand(session.ChannelVolume, "23"))
		for i := 0; i < 3; i++ {
			assert.Equal(t, key(protocol.KeyVolumeUp), conn.next(t))
		}
		require.NoError(t, s.HandleCommand(session.ChannelVolume, "DOWN"))
		assert.Equal(t, key(protocol.KeyVolumeDown), conn.next(t))
	})

	t.Run("Keyboard", func(t *testing.T) {
		require.NoError(t, s.HandleCommand(session.ChannelKeyboard, "Hi"))
		assert.Equal(t, key(36), conn.next(t))
		assert.Equal(t, key(37), conn.next(t))
		assert.ErrorIs(t, s.HandleCommand(session.ChannelKeyboard, "ü"), session.ErrInvalidCommand)
	})

	t.Run("DebugRaw", func(t *testing.T) {
		require.NoError(t, s.HandleCommand(session.ChannelDebug, "RAW:06520408031001"))
		assert.Equal(t, "520408031001", conn.next(t))
		assert.ErrorIs(t, s.HandleCommand(session.ChannelDebug, "RAW:07520408031001"), session.ErrInvalidCommand)
		assert.ErrorIs(t, s.HandleCommand(session.ChannelDebug, "RAW:zz"), session.ErrInvalidCommand)
	})

	t.Run("DebugMsg", func(t *testing.T) {
		require.NoError(t, s.HandleCommand(session.ChannelDebug, "MSG:"+protocol.PowerOffPayload))
		waitFor(t, func() bool { return !s.Device().Power }, "power mirror off")
	})

	t.Run("Invalid", func(t *testing.T) {
		assert.ErrorIs(t, s.HandleCommand("brightness", "10"), session.ErrUnknownChannel)
		assert.ErrorIs(t, s.HandleCommand(session.ChannelPower, "MAYBE"), session.ErrInvalidCommand)
		assert.ErrorIs(t, s.HandleCommand(session.ChannelKeypress, "KEY_NOPE"), session.ErrInvalidCommand)
		assert.ErrorIs(t, s.HandleCommand(session.ChannelVolume, "101"), session.ErrInvalidCommand)
	})
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		channel string
		value   string
		wantErr bool
	}{
		{"KEY_HOME", session.ChannelKeypress, "KEY_HOME", false},
		{"3_RELEASE", session.ChannelKeypress, "3_RELEASE", false},
		{"PINCODE REQUEST", session.ChannelPinCode, "REQUEST", false},
		{"pincode 1a2b3c", session.ChannelPinCode, "1a2b3c", false},
		{"POWER ON", session.ChannelPower, "ON", false},
		{"MUTE OFF", session.ChannelMute, "OFF", false},
		{"VOLUME 40", session.ChannelVolume, "40", false},
		{"KEYBOARD hello world", session.ChannelKeyboard, "hello world", false},
		{"DEBUG MSG:c202020801", session.ChannelDebug, "MSG:c202020801", false},
		{"", "", "", true},
		{"POWER", "", "", true},
		{"BRIGHTNESS 10", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			channel, value, err := session.ParseCommand(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.channel, channel)
			assert.Equal(t, tt.value, value)
		})
	}
}
