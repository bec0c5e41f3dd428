package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	kv "github.com/DeresiuPhoi/distributed-lab2"
	"github.com/DeresiuPhoi/distributed-lab2/logging"
)

func main() {
	id := flag.String("id", "", "node ID, generated if empty")
	listen := flag.String("listen", "127.0.0.1:8000", "address to serve the node API on")
	peers := flag.String("peers", "", "comma separated addresses of the other nodes")
	configPath := flag.String("config", "", "path to a JSON config file, overrides -id, -listen and -peers")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error, fatal")
	pushTimeout := flag.Duration("push-timeout", 5*time.Second, "time to wait for a push to a peer")
	delayPeer := flag.String("delay-peer", "", "peer address to delay pushes to")
	delay := flag.Duration("delay", 0, "delay applied to pushes to the delayed peer")
	flag.Parse()

	config := kv.Config{ID: *id, ListenAddress: *listen, Peers: splitPeers(*peers)}
	if *configPath != "" {
		var err error
		config, err = kv.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	opts := []kv.Option{kv.WithLogLevel(level), kv.WithPushTimeout(*pushTimeout)}
	if *delayPeer != "" {
		opts = append(opts, kv.WithPushDelay(*delayPeer, *delay))
	}

	server, err := kv.NewServer(config, opts...)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	if err := server.Start(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	// Wait for interrupt signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	server.Stop()
}

// splitPeers parses a comma separated peer list, tolerating empty entries.
func splitPeers(list string) []string {
	peers := []string{}
	for _, peer := range strings.Split(list, ",") {
		if peer = strings.TrimSpace(peer); peer != "" {
			peers = append(peers, peer)
		}
	}
	return peers
}
