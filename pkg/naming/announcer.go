package naming

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/logging"
	"github.com/dd0wney/cluso-registry/pkg/metrics"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// busRecvTimeout bounds each Recv so the loop notices stop requests.
const busRecvTimeout = time.Second

// AnnouncerConfig configures the networked naming layer.
type AnnouncerConfig struct {
	// Node is this node's identifier, e.g. "svc-9001@host-a".
	Node string
	// BindAddr is the BUS listen address, e.g. "tcp://*:9201".
	BindAddr string
	// DispatchAddr is the advertised REQ/REP address peers use to reach
	// this node's dispatcher, e.g. "tcp://host-a:9202".
	DispatchAddr string
	// ReannounceInterval is how often local claims are re-broadcast to
	// heal lost messages and inform late-joining peers (default: 10s).
	ReannounceInterval time.Duration
}

type remoteClaim struct {
	node         string
	regID        string
	claimedAt    int64
	dispatchAddr string

	// handle is the cached remote stand-in for this claim, minted on
	// first lookup and closed when the claim is released or replaced.
	handle *remoteHandle
}

// Announcer is the cluster-wide naming facility: a local Directory plus
// claim gossip over a BUS socket. Two nodes claiming the same name
// discover each other through the gossip; the claim that loses the
// tie-break receives a conflict notification.
//
// Concurrent Safety:
// 1. Start/Stop use sync.Once to ensure single initialization/cleanup
// 2. Background goroutines (recvLoop, reannounceLoop) respect stopCh
// 3. The remote claim table is guarded by its own RWMutex
type Announcer struct {
	config  AnnouncerConfig
	dir     *Directory
	factory SocketFactory

	sock      BusSocket
	remotes   map[string]remoteClaim
	remotesMu sync.RWMutex

	stopCh    chan struct{}
	running   bool
	runningMu sync.Mutex
	startOnce sync.Once
	stopOnce  sync.Once

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// AnnouncerOption configures an Announcer.
type AnnouncerOption func(*Announcer)

// WithAnnouncerLogger sets the logger.
func WithAnnouncerLogger(l logging.Logger) AnnouncerOption {
	return func(a *Announcer) { a.logger = l }
}

// WithAnnouncerMetrics sets the metrics registry.
func WithAnnouncerMetrics(m *metrics.Registry) AnnouncerOption {
	return func(a *Announcer) { a.metricsRegistry = m }
}

// NewAnnouncer creates the networked naming layer over a local directory.
func NewAnnouncer(dir *Directory, config AnnouncerConfig, factory SocketFactory, opts ...AnnouncerOption) *Announcer {
	if config.ReannounceInterval <= 0 {
		config.ReannounceInterval = 10 * time.Second
	}

	a := &Announcer{
		config:          config,
		dir:             dir,
		factory:         factory,
		remotes:         make(map[string]remoteClaim),
		stopCh:          make(chan struct{}),
		logger:          logging.DefaultLogger(),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start binds the gossip socket and begins processing announcements.
func (a *Announcer) Start() error {
	var startErr error
	a.startOnce.Do(func() {
		a.runningMu.Lock()
		defer a.runningMu.Unlock()

		sock, err := a.factory.NewBusSocket()
		if err != nil {
			startErr = err
			return
		}
		if err := sock.Listen(a.config.BindAddr); err != nil {
			sock.Close()
			startErr = err
			return
		}
		if err := sock.SetRecvDeadline(busRecvTimeout); err != nil {
			sock.Close()
			startErr = err
			return
		}

		a.sock = sock
		a.running = true

		go a.recvLoop()
		go a.reannounceLoop()

		a.logger.Info("naming announcer started",
			logging.NodeID(a.config.Node),
			logging.Addr(a.config.BindAddr))
	})
	return startErr
}

// Stop stops the announcer and closes the gossip socket.
func (a *Announcer) Stop() error {
	var stopErr error
	a.stopOnce.Do(func() {
		a.runningMu.Lock()
		defer a.runningMu.Unlock()

		if !a.running {
			stopErr = ErrNotRunning
			return
		}

		close(a.stopCh)
		a.running = false
		stopErr = a.sock.Close()

		a.remotesMu.Lock()
		for name, rc := range a.remotes {
			if rc.handle != nil {
				rc.handle.Close()
				rc.handle = nil
				a.remotes[name] = rc
			}
		}
		a.remotesMu.Unlock()

		a.logger.Info("naming announcer stopped", logging.NodeID(a.config.Node))
	})
	return stopErr
}

// Connect dials a peer's gossip socket. The poller's connector calls
// this for every discovered peer; dialing an already-connected peer is
// harmless.
func (a *Announcer) Connect(addr string) error {
	a.runningMu.Lock()
	defer a.runningMu.Unlock()

	if !a.running {
		return ErrNotRunning
	}
	return a.sock.Dial(addr)
}

// Register claims a name locally and announces the claim to the cluster.
func (a *Announcer) Register(name string, h proc.Handle) (*Registration, error) {
	reg, err := a.dir.Register(name, h)
	if err != nil {
		return nil, err
	}

	_, claimedAt, _ := a.dir.claimInfo(name)
	a.broadcastClaim(claimRecord{Name: name, RegID: reg.ID, ClaimedAt: claimedAt})
	return reg, nil
}

// Deregister releases a name locally and announces the release.
func (a *Announcer) Deregister(name string) {
	regID, _, ok := a.dir.claimInfo(name)
	a.dir.Deregister(name)
	if !ok {
		return
	}

	msg, err := NewMessage(MsgRelease, nil)
	if err != nil {
		return
	}
	msg.Node = a.config.Node
	msg.Name = name
	msg.RegID = regID
	a.broadcast(msg, "release")
}

// Lookup resolves a name to a handle: the local directory first, then
// the remote claim table. Remote handles route by name; the claim's
// registration ID is a tie-break token, not a dispatch address. One
// handle per claim is cached so repeated lookups share a socket.
func (a *Announcer) Lookup(name string) proc.Handle {
	if h := a.dir.Lookup(name); h != nil {
		return h
	}

	a.remotesMu.Lock()
	defer a.remotesMu.Unlock()

	rc, ok := a.remotes[name]
	if !ok {
		return nil
	}
	if rc.handle == nil {
		rc.handle = newRemoteHandle(a.factory, remoteTarget{
			node: rc.node,
			addr: rc.dispatchAddr,
			name: name,
		}, a.metricsRegistry)
		a.remotes[name] = rc
	}
	return rc.handle
}

// PeerClaims returns the number of names known to be held by peers.
func (a *Announcer) PeerClaims() int {
	a.remotesMu.RLock()
	defer a.remotesMu.RUnlock()
	return len(a.remotes)
}

// IsRunning reports whether the announcer is processing gossip.
func (a *Announcer) IsRunning() bool {
	a.runningMu.Lock()
	defer a.runningMu.Unlock()
	return a.running
}

func (a *Announcer) broadcastClaim(c claimRecord) {
	msg, err := NewMessage(MsgClaim, nil)
	if err != nil {
		return
	}
	msg.Node = a.config.Node
	msg.Name = c.Name
	msg.RegID = c.RegID
	msg.ClaimedAt = c.ClaimedAt
	msg.DispatchAddr = a.config.DispatchAddr
	a.broadcast(msg, "claim")
}

func (a *Announcer) broadcast(msg *Message, msgType string) {
	a.runningMu.Lock()
	defer a.runningMu.Unlock()
	if !a.running {
		return
	}

	data, err := msg.Encode()
	if err != nil {
		return
	}
	if err := a.sock.Send(data); err != nil {
		// Gossip is healed by the reannounce loop; log and move on
		a.logger.Debug("gossip send failed", logging.Error(err))
		return
	}
	if a.metricsRegistry != nil {
		a.metricsRegistry.RecordTransportMessage("sent", msgType, len(data))
	}
}

func (a *Announcer) recvLoop() {
	for {
		select {
		case <-a.stopCh:
			return
		default:
		}

		data, err := a.sock.Recv()
		if err != nil {
			// Deadline expiry is the normal idle path
			continue
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			a.logger.Warn("dropping undecodable gossip message", logging.Error(err))
			continue
		}

		if a.metricsRegistry != nil {
			a.metricsRegistry.RecordTransportMessage("received", msgTypeLabel(msg.Type), len(data))
		}

		switch msg.Type {
		case MsgClaim:
			a.handleClaim(msg)
		case MsgRelease:
			a.handleRelease(msg)
		default:
			// Only gossip traffic is expected on the bus
		}
	}
}

func (a *Announcer) handleClaim(m *Message) {
	if m.Node == a.config.Node {
		return
	}

	localID, localClaimedAt, held := a.dir.claimInfo(m.Name)
	if held {
		if claimWins(m.ClaimedAt, m.RegID, localClaimedAt, localID) {
			// Remote claim wins the tie-break: the local registrant
			// must yield. Record the winner so lookups keep working.
			a.logger.Warn("name claim conflict, local registrant yields",
				logging.RegistryName(m.Name),
				logging.NodeID(a.config.Node),
				logging.Peer(m.Node))
			a.storeRemote(m)
			a.dir.NotifyConflict(m.Name, m.Node)
		} else {
			// Local claim wins: re-announce it immediately so the
			// losing side learns even if it missed our original claim.
			a.broadcastClaim(claimRecord{Name: m.Name, RegID: localID, ClaimedAt: localClaimedAt})
		}
		return
	}

	a.storeRemote(m)
}

func (a *Announcer) handleRelease(m *Message) {
	a.remotesMu.Lock()
	defer a.remotesMu.Unlock()

	if rc, ok := a.remotes[m.Name]; ok && rc.regID == m.RegID {
		if rc.handle != nil {
			rc.handle.Close()
		}
		delete(a.remotes, m.Name)
	}
}

func (a *Announcer) storeRemote(m *Message) {
	a.remotesMu.Lock()
	defer a.remotesMu.Unlock()

	if existing, ok := a.remotes[m.Name]; ok {
		// Keep whichever remote claim wins the tie-break
		if !claimWins(m.ClaimedAt, m.RegID, existing.claimedAt, existing.regID) {
			return
		}
		// The cached handle addressed the superseded claim
		if existing.handle != nil {
			existing.handle.Close()
		}
	}
	a.remotes[m.Name] = remoteClaim{
		node:         m.Node,
		regID:        m.RegID,
		claimedAt:    m.ClaimedAt,
		dispatchAddr: m.DispatchAddr,
	}
}

func (a *Announcer) reannounceLoop() {
	ticker := time.NewTicker(a.config.ReannounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			for _, c := range a.dir.claims() {
				a.broadcastClaim(c)
			}
		}
	}
}

// claimWins reports whether claim a beats claim b: the earlier claim
// wins, and registration IDs break exact ties. Every node applies the
// same rule, so two racing registrants always agree on the loser.
func claimWins(aTime int64, aID string, bTime int64, bID string) bool {
	if aTime != bTime {
		return aTime < bTime
	}
	return aID < bID
}

func msgTypeLabel(t MessageType) string {
	switch t {
	case MsgClaim:
		return "claim"
	case MsgRelease:
		return "release"
	case MsgCast:
		return "cast"
	case MsgCall:
		return "call"
	case MsgNotify:
		return "notify"
	case MsgGetHandle:
		return "get_handle"
	case MsgReply:
		return "reply"
	case MsgAck:
		return "ack"
	case MsgError:
		return "error"
	default:
		return "unknown"
	}
}

var _ Facility = (*Announcer)(nil)
