package p2p_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/smilo-platform/smilo-sync/internal/p2p"
	"github.com/smilo-platform/smilo-sync/internal/p2p/wire"
	"github.com/smilo-platform/smilo-sync/libs/log"
	"github.com/smilo-platform/smilo-sync/types"
)

type received struct {
	msg    types.Message
	sender string
}

// recordingDispatcher collects every dispatched message.
type recordingDispatcher struct {
	mtx  sync.Mutex
	msgs []received
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg types.Message, sender *types.Peer) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.msgs = append(d.msgs, received{msg: msg, sender: sender.Identifier})
	return d.err
}

func (d *recordingDispatcher) received() []received {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]received(nil), d.msgs...)
}

func (d *recordingDispatcher) find(pt types.PayloadType) []received {
	var out []received
	for _, r := range d.received() {
		if r.msg.Type == pt {
			out = append(out, r)
		}
	}
	return out
}

type fixedLength int64

func (l fixedLength) BlockchainLength() int64 { return int64(l) }

type testNode struct {
	router     *p2p.Router
	dispatcher *recordingDispatcher
	self       *types.Peer
}

func testOptions() p2p.RouterOptions {
	return p2p.RouterOptions{
		ListenAddress:    "127.0.0.1:0",
		HandshakeTimeout: time.Second,
		DialTimeout:      time.Second,
		MaxMessageSize:   64 * 1024,
	}
}

func makeNode(ctx context.Context, t *testing.T, id string, length int64, opts p2p.RouterOptions) *testNode {
	t.Helper()

	self := types.NewPeer(id, net.IPv4(127, 0, 0, 1), 30303)
	require.NoError(t, self.SetCapabilities([]types.Capability{{Name: "smilo", Version: 1}}))

	logger := log.TestingLogger().With("node", id)
	codec := wire.NewCodec(logger, func(identifier string, address net.IP, port uint16) *types.Peer {
		if identifier == id {
			return nil
		}
		return types.NewPeer(identifier, address, port)
	})

	router, err := p2p.NewRouter(logger, p2p.NopMetrics(), self, codec, fixedLength(length), opts)
	require.NoError(t, err)

	dispatcher := &recordingDispatcher{}
	router.SetDispatcher(dispatcher)

	require.NoError(t, router.Start(ctx))
	t.Cleanup(func() {
		if router.IsRunning() {
			require.NoError(t, router.Stop())
		}
	})

	return &testNode{router: router, dispatcher: dispatcher, self: self}
}

func peerIDs(peers []*types.Peer) []string {
	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.Identifier)
	}
	return ids
}

func TestRouter_Options(t *testing.T) {
	testcases := map[string]struct {
		mutate func(*p2p.RouterOptions)
		ok     bool
	}{
		"valid":               {func(*p2p.RouterOptions) {}, true},
		"no handshake":        {func(o *p2p.RouterOptions) { o.HandshakeTimeout = 0 }, false},
		"no dial timeout":     {func(o *p2p.RouterOptions) { o.DialTimeout = 0 }, false},
		"negative ping":       {func(o *p2p.RouterOptions) { o.PingInterval = -time.Second }, false},
		"no max message size": {func(o *p2p.RouterOptions) { o.MaxMessageSize = 0 }, false},
		"negative inbound":    {func(o *p2p.RouterOptions) { o.MaxIncomingConnections = -1 }, false},
	}
	for name, tc := range testcases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			tc.mutate(&opts)
			err := opts.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestRouter_StartWithoutDispatcher(t *testing.T) {
	self := types.NewPeer("a", net.IPv4(127, 0, 0, 1), 30303)
	router, err := p2p.NewRouter(log.NewNopLogger(), nil, self, wire.NewCodec(log.NewNopLogger(), nil), fixedLength(0), testOptions())
	require.NoError(t, err)
	require.Error(t, router.Start(context.Background()))
}

func TestRouter_Handshake(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := makeNode(ctx, t, "alpha", 3, testOptions())
	b := makeNode(ctx, t, "beta", 7, testOptions())

	peer, err := a.router.Dial(ctx, b.router.ListenAddr().String())
	require.NoError(t, err)
	require.Equal(t, "beta", peer.Identifier)
	require.True(t, peer.HasCapability("smilo", 1))

	require.Eventually(t, func() bool {
		return len(b.router.Peers()) == 1
	}, time.Second, 10*time.Millisecond)

	if diff := cmp.Diff([]string{"alpha"}, peerIDs(b.router.Peers())); diff != "" {
		t.Fatalf("unexpected peers (-want +got):\n%s", diff)
	}

	// both sides announce their chain length once connected
	require.Eventually(t, func() bool {
		return len(a.dispatcher.find(types.PayloadTypeNetworkState)) == 1 &&
			len(b.dispatcher.find(types.PayloadTypeNetworkState)) == 1
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, received{
		msg:    types.NewMessage(types.PayloadTypeNetworkState, "7"),
		sender: "beta",
	}, a.dispatcher.find(types.PayloadTypeNetworkState)[0])
	require.Equal(t, received{
		msg:    types.NewMessage(types.PayloadTypeNetworkState, "3"),
		sender: "alpha",
	}, b.dispatcher.find(types.PayloadTypeNetworkState)[0])

	require.NoError(t, a.router.Stop())
	require.Eventually(t, func() bool {
		return len(b.router.Peers()) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRouter_RejectsSelf(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := makeNode(ctx, t, "alpha", 0, testOptions())
	twin := makeNode(ctx, t, "alpha", 0, testOptions())

	_, err := a.router.Dial(ctx, twin.router.ListenAddr().String())
	require.ErrorIs(t, err, wire.ErrPeerRejected)
	require.Empty(t, a.router.Peers())
}

func TestRouter_DuplicatePeer(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := makeNode(ctx, t, "alpha", 0, testOptions())
	b := makeNode(ctx, t, "beta", 0, testOptions())

	_, err := a.router.Dial(ctx, b.router.ListenAddr().String())
	require.NoError(t, err)

	_, err = a.router.Dial(ctx, b.router.ListenAddr().String())
	require.ErrorIs(t, err, p2p.ErrDuplicatePeer)
	require.Len(t, a.router.Peers(), 1)
}

func TestRouter_SendToPeer(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := makeNode(ctx, t, "alpha", 0, testOptions())
	b := makeNode(ctx, t, "beta", 0, testOptions())

	_, err := a.router.Dial(ctx, b.router.ListenAddr().String())
	require.NoError(t, err)

	require.NoError(t, a.router.SendToPeer(ctx, "beta", types.PayloadTypePing, ""))
	require.NoError(t, a.router.SendToPeer(ctx, "beta", types.PayloadTypeLinkNetwork, "main"))

	require.Eventually(t, func() bool {
		return len(b.dispatcher.find(types.PayloadTypeLinkNetwork)) == 1
	}, time.Second, 10*time.Millisecond)

	ping := b.dispatcher.find(types.PayloadTypePing)
	require.Len(t, ping, 1)
	require.Equal(t, []string{"PING"}, ping[0].msg.Parts)
	require.Equal(t, []string{"LINK_NETWORK", "main"}, b.dispatcher.find(types.PayloadTypeLinkNetwork)[0].msg.Parts)

	err = a.router.SendToPeer(ctx, "gamma", types.PayloadTypePing, "")
	require.ErrorIs(t, err, p2p.ErrPeerNotConnected)
}

func TestRouter_BroadcastToNetwork(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := makeNode(ctx, t, "alpha", 0, testOptions())
	b := makeNode(ctx, t, "beta", 0, testOptions())
	c := makeNode(ctx, t, "gamma", 0, testOptions())

	for _, n := range []*testNode{b, c} {
		_, err := a.router.Dial(ctx, n.router.ListenAddr().String())
		require.NoError(t, err)
	}

	network := types.NewNetwork("main", types.NetworkStatusLinked)
	network.Confirm("beta")
	network.AddUnconfirmed("delta")

	require.NoError(t, a.router.BroadcastToNetwork(ctx, network, types.PayloadTypeLinkNetwork, "main"))

	require.Eventually(t, func() bool {
		return len(b.dispatcher.find(types.PayloadTypeLinkNetwork)) == 1
	}, time.Second, 10*time.Millisecond)

	// gamma is connected but not a member
	require.NoError(t, a.router.SendToPeer(ctx, "gamma", types.PayloadTypePing, ""))
	require.Eventually(t, func() bool {
		return len(c.dispatcher.find(types.PayloadTypePing)) == 1
	}, time.Second, 10*time.Millisecond)
	require.Empty(t, c.dispatcher.find(types.PayloadTypeLinkNetwork))
}

func TestRouter_DispatchErrorKeepsConnection(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := makeNode(ctx, t, "alpha", 0, testOptions())
	b := makeNode(ctx, t, "beta", 0, testOptions())
	b.dispatcher.err = errors.New("boom")

	_, err := a.router.Dial(ctx, b.router.ListenAddr().String())
	require.NoError(t, err)

	require.NoError(t, a.router.SendToPeer(ctx, "beta", types.PayloadTypePing, ""))
	require.NoError(t, a.router.SendToPeer(ctx, "beta", types.PayloadTypePong, ""))

	require.Eventually(t, func() bool {
		return len(b.dispatcher.find(types.PayloadTypePong)) == 1
	}, time.Second, 10*time.Millisecond)
	require.Len(t, b.router.Peers(), 1)
}

func TestRouter_Ping(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := testOptions()
	opts.PingInterval = 20 * time.Millisecond

	a := makeNode(ctx, t, "alpha", 0, opts)
	b := makeNode(ctx, t, "beta", 0, testOptions())

	_, err := a.router.Dial(ctx, b.router.ListenAddr().String())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(b.dispatcher.find(types.PayloadTypePing)) >= 2
	}, time.Second, 10*time.Millisecond)

	// beta never answers, so alpha eventually evicts it
	require.Eventually(t, func() bool {
		return len(a.router.Peers()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_PersistentPeers(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := makeNode(ctx, t, "beta", 0, testOptions())

	opts := testOptions()
	opts.ListenAddress = ""
	opts.PersistentPeers = []string{b.router.ListenAddr().String()}
	a := makeNode(ctx, t, "alpha", 0, opts)
	require.Nil(t, a.router.ListenAddr())

	require.Eventually(t, func() bool {
		return len(a.router.Peers()) == 1 && len(b.router.Peers()) == 1
	}, time.Second, 10*time.Millisecond)
}
