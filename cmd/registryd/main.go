package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dd0wney/cluso-registry/pkg/cluster"
	"github.com/dd0wney/cluso-registry/pkg/config"
	"github.com/dd0wney/cluso-registry/pkg/health"
	"github.com/dd0wney/cluso-registry/pkg/logging"
	"github.com/dd0wney/cluso-registry/pkg/metrics"
	"github.com/dd0wney/cluso-registry/pkg/naming"
	"github.com/dd0wney/cluso-registry/pkg/registry"
	"github.com/dd0wney/cluso-registry/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	nodeName := flag.String("node", "", "Node name, {prefix}-{port}@{host} (overrides config)")
	busAddr := flag.String("bus", "", "Gossip BUS bind address (overrides config)")
	dispatchAddr := flag.String("dispatch", "", "Dispatch REQ/REP bind address (overrides config)")
	httpAddr := flag.String("http", "", "Metrics/health HTTP address (overrides config)")
	flag.Parse()

	fmt.Printf("Cluso Registry Node\n")
	fmt.Printf("===================\n\n")

	cfg, err := loadConfig(*configPath, *nodeName, *busAddr, *dispatchAddr, *httpAddr)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.LogLevel))
	metricsRegistry := metrics.NewRegistry()

	// Naming layer: local directory, gossip announcer, request dispatcher.
	fmt.Printf("Starting naming layer on %s...\n", cfg.Node.BusBindAddr)
	factory := naming.NewMangosSocketFactory()
	dir := naming.NewDirectory(cfg.Node.Name,
		naming.WithDirectoryLogger(logger),
		naming.WithDirectoryMetrics(metricsRegistry))

	advertiseAddr := cfg.Node.DispatchAdvertiseAddr
	if advertiseAddr == "" {
		advertiseAddr = cfg.Node.DispatchBindAddr
	}

	announcer := naming.NewAnnouncer(dir, naming.AnnouncerConfig{
		Node:         cfg.Node.Name,
		BindAddr:     cfg.Node.BusBindAddr,
		DispatchAddr: advertiseAddr,
	}, factory,
		naming.WithAnnouncerLogger(logger),
		naming.WithAnnouncerMetrics(metricsRegistry))
	if err := announcer.Start(); err != nil {
		log.Fatalf("Failed to start announcer: %v", err)
	}

	dispatcher := naming.NewDispatcher(cfg.Node.Name, cfg.Node.DispatchBindAddr, advertiseAddr, dir, factory,
		naming.WithDispatcherLogger(logger),
		naming.WithDispatcherMetrics(metricsRegistry))
	if err := dispatcher.Start(); err != nil {
		log.Fatalf("Failed to start dispatcher: %v", err)
	}

	reg := registry.New(cfg.Node.Name, announcer,
		registry.WithLogger(logger),
		registry.WithMetrics(metricsRegistry))

	// Discovery: resolve the SRV query into peer node names and dial
	// each peer's gossip bus.
	var poller *cluster.Poller
	membership := cluster.NewPeerMembership(cfg.Node.Name,
		cluster.WithMembershipMetrics(metricsRegistry))
	if cfg.Discovery.Query != "" {
		fmt.Printf("Starting discovery for %q every %v...\n", cfg.Discovery.Query, cfg.Discovery.PollInterval())
		connector := cluster.ConnectorFunc(func(node string) error {
			_, port, host, err := cluster.ParseNodeName(node)
			if err != nil {
				return err
			}
			return announcer.Connect(fmt.Sprintf("tcp://%s:%d", host, port))
		})
		poller = cluster.NewPoller(cluster.PollerConfig{
			Query:          cfg.Discovery.Query,
			NodeNamePrefix: cfg.Discovery.NodeNamePrefix,
			LocalNode:      cfg.Node.Name,
			PollInterval:   cfg.Discovery.PollInterval(),
			Debug:          cfg.Discovery.Debug,
		}, cluster.NewDNSResolver(), connector,
			cluster.WithPollerLogger(logger),
			cluster.WithPollerMetrics(metricsRegistry),
			cluster.WithPollerMembership(membership))
		if err := poller.Start(); err != nil {
			log.Fatalf("Failed to start discovery poller: %v", err)
		}
	} else {
		fmt.Printf("Discovery disabled (no query configured)\n")
	}

	checker := health.NewChecker()
	checker.RegisterLivenessCheck("naming", health.NamingCheck(announcer.IsRunning, dir.Len))
	checker.RegisterReadinessCheck("naming", health.NamingCheck(announcer.IsRunning, dir.Len))
	checker.RegisterReadinessCheck("proxies", health.ProxiesCheck(reg.ActiveProxies))
	checker.RegisterReadinessCheck("peers", health.PeersCheck(func() (int, int) {
		return membership.HealthyPeerCount(30 * time.Second), membership.PeerCount()
	}))
	if poller != nil {
		// Two missed cycles count as stale.
		checker.RegisterReadinessCheck("discovery",
			health.PollerCheck(poller.LastSuccess, 3*cfg.Discovery.PollInterval()))
	}

	ops := server.NewOpsServer(cfg.HTTP.Addr, metricsRegistry.GetPrometheusRegistry(), checker)
	if poller != nil {
		ops.RegisterShutdownHook(func() { poller.Stop() })
	}
	ops.RegisterShutdownHook(reg.Shutdown)
	ops.RegisterShutdownHook(func() {
		if err := dispatcher.Stop(); err != nil {
			log.Printf("Dispatcher stop error: %v", err)
		}
		if err := announcer.Stop(); err != nil {
			log.Printf("Announcer stop error: %v", err)
		}
	})

	fmt.Printf("Node %s ready\n", cfg.Node.Name)
	fmt.Printf("Health check: http://localhost%s/health\n\n", cfg.HTTP.Addr)

	if err := ops.Start(); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}

// loadConfig reads the config file when given and applies flag overrides.
func loadConfig(path, node, bus, dispatch, httpAddr string) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if node != "" {
		cfg.Node.Name = node
	}
	if bus != "" {
		cfg.Node.BusBindAddr = bus
	}
	if dispatch != "" {
		cfg.Node.DispatchBindAddr = dispatch
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
