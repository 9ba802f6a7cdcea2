package cluster

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/logging"
	"github.com/dd0wney/cluso-registry/pkg/metrics"
)

// defaultPollInterval is used when the config leaves the interval unset.
const defaultPollInterval = 5000 * time.Millisecond

// PollerConfig configures the membership poller.
type PollerConfig struct {
	// Query is the service-directory name resolved each cycle.
	Query string
	// NodeNamePrefix is the short-name prefix of cluster nodes.
	NodeNamePrefix string
	// LocalNode is this node's name; it is removed from every
	// discovered set.
	LocalNode string
	// PollInterval is the cycle period (default: 5000ms).
	PollInterval time.Duration
	// Debug enables logging of the discovered peer set.
	Debug bool
}

// Poller periodically resolves the discovery query into peer node
// names and asks the connector to connect each one. A failed resolution
// is not fatal: the cycle is skipped and retried at the next tick.
//
// Concurrent Safety:
// 1. Start/Stop use sync.Once to ensure single initialization/cleanup
// 2. Background goroutine (pollLoop) respects stopCh for clean shutdown
// 3. Uses the membership's thread-safe methods to record peers
type Poller struct {
	config     PollerConfig
	resolver   SRVResolver
	connector  Connector
	membership *PeerMembership

	lastSuccess atomic.Int64

	stopCh    chan struct{}
	running   bool
	runningMu sync.Mutex
	startOnce sync.Once
	stopOnce  sync.Once

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithPollerLogger sets the logger.
func WithPollerLogger(l logging.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// WithPollerMetrics sets the metrics registry.
func WithPollerMetrics(m *metrics.Registry) PollerOption {
	return func(p *Poller) { p.metricsRegistry = m }
}

// WithPollerMembership records discovered peers in a membership table.
func WithPollerMembership(pm *PeerMembership) PollerOption {
	return func(p *Poller) { p.membership = pm }
}

// NewPoller creates a membership poller.
func NewPoller(config PollerConfig, resolver SRVResolver, connector Connector, opts ...PollerOption) *Poller {
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}

	p := &Poller{
		config:          config,
		resolver:        resolver,
		connector:       connector,
		stopCh:          make(chan struct{}),
		logger:          logging.DefaultLogger(),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start runs an immediate discovery cycle and begins polling.
func (p *Poller) Start() error {
	var startErr error
	p.startOnce.Do(func() {
		p.runningMu.Lock()
		defer p.runningMu.Unlock()

		if p.config.Query == "" {
			startErr = ErrEmptyQuery
			return
		}

		p.running = true
		go p.pollLoop()

		p.logger.Info("membership poller started",
			logging.NodeID(p.config.LocalNode),
			logging.String("query", p.config.Query),
			logging.Duration("interval", p.config.PollInterval))
	})
	return startErr
}

// Stop stops the poller.
func (p *Poller) Stop() error {
	var stopErr error
	p.stopOnce.Do(func() {
		p.runningMu.Lock()
		defer p.runningMu.Unlock()

		if !p.running {
			stopErr = ErrPollerNotRunning
			return
		}

		close(p.stopCh)
		p.running = false
		p.logger.Info("membership poller stopped", logging.NodeID(p.config.LocalNode))
	})
	return stopErr
}

// IsRunning reports whether the poller is active.
func (p *Poller) IsRunning() bool {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()
	return p.running
}

// LastSuccess returns the time of the last successful discovery cycle,
// or the zero time if none has succeeded yet.
func (p *Poller) LastSuccess() time.Time {
	nanos := p.lastSuccess.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (p *Poller) pollLoop() {
	p.pollOnce()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *Poller) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PollInterval)
	defer cancel()

	records, err := p.resolver.LookupSRV(ctx, p.config.Query)
	if err != nil {
		// Transient resolution failures only cost this cycle
		p.logger.Debug("discovery query failed",
			logging.String("query", p.config.Query),
			logging.Error(err))
		if p.metricsRegistry != nil {
			p.metricsRegistry.RecordPollCycle(false)
		}
		return
	}

	peers := p.peerNames(records)
	if p.config.Debug {
		p.logger.Debug("discovered peer nodes",
			logging.NodeID(p.config.LocalNode),
			logging.Peers(peers))
	}

	for _, peer := range peers {
		if p.membership != nil {
			if err := p.membership.Observe(peer); err != nil {
				p.logger.Warn("discovered peer has malformed name",
					logging.Peer(peer), logging.Error(err))
				continue
			}
		}
		err := p.connector.Connect(peer)
		if p.metricsRegistry != nil {
			p.metricsRegistry.RecordConnectAttempt(err == nil)
		}
		if err != nil {
			p.logger.Debug("peer connect failed",
				logging.Peer(peer), logging.Error(err))
		}
	}

	p.lastSuccess.Store(time.Now().UnixNano())
	if p.metricsRegistry != nil {
		p.metricsRegistry.RecordPollCycle(true)
	}
}

// peerNames maps SRV records to node names and removes the local node.
func (p *Poller) peerNames(records []SRVRecord) []string {
	names := make([]string, 0, len(records))
	for _, rec := range records {
		name := FormatNodeName(p.config.NodeNamePrefix, rec.Port, rec.Host)
		if name == p.config.LocalNode {
			continue
		}
		names = append(names, name)
	}
	return names
}
