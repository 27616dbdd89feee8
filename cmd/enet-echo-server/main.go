// Command enet-echo-server runs a small echo server over the enet
// transport: every packet received, on any channel, is sent back to
// its sender on the same channel. It exists to exercise the enet package end to end and to
// give the codec/logging/metrics packages a real call site, the way
// the teacher's core/main.go drives its RakNet server.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	enet "github.com/nullbyte-dev/goenet"
	"github.com/nullbyte-dev/goenet/codec"
	"github.com/nullbyte-dev/goenet/internal/logging"
	"github.com/nullbyte-dev/goenet/metrics"
)

const version = "1.0.0"

var (
	bindAddr     string
	peerLimit    int
	channelLimit int
	metricsAddr  string
	compress     bool
	checksum     bool
)

var rootCmd = &cobra.Command{
	Use:   "enet-echo-server",
	Short: "Echo server built on the enet reliable-UDP transport",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.Flags().StringVar(&bindAddr, "bind", envOr("ENET_BIND", "0.0.0.0:7777"), "UDP address to bind")
	rootCmd.Flags().IntVar(&peerLimit, "peer-limit", 64, "maximum number of simultaneous peers")
	rootCmd.Flags().IntVar(&channelLimit, "channel-limit", 4, "channels per peer")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", envOr("ENET_METRICS_ADDR", "127.0.0.1:9109"), "address to serve Prometheus metrics on")
	rootCmd.Flags().BoolVar(&compress, "compress", false, "enable DEFLATE datagram compression")
	rootCmd.Flags().BoolVar(&checksum, "checksum", false, "enable CRC32 datagram checksums")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logging.Banner("enet echo server", version)
	if err := rootCmd.Execute(); err != nil {
		logging.Fatal("command failed", "error", err)
	}
}

func runServer() {
	laddr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		logging.Fatal("invalid bind address", "addr", bindAddr, "error", err)
	}
	socket, err := enet.NewUDPSocket(laddr)
	if err != nil {
		logging.Fatal("failed to bind socket", "addr", bindAddr, "error", err)
	}
	defer socket.Close()

	settings := enet.DefaultHostSettings()
	settings.PeerLimit = peerLimit
	settings.ChannelLimit = channelLimit
	if compress {
		settings.Compressor = codec.NewDeflateCompressor(-1)
	}
	if checksum {
		settings.Checksum = codec.CRC32{}
	}

	host, err := enet.NewHost[string](socket, settings)
	if err != nil {
		logging.Fatal("failed to create host", "error", err)
	}

	collector := metrics.NewCollector("enet_echo", prometheus.Labels{"bind": bindAddr}, func() metrics.Stats {
		s := host.Statistics()
		return metrics.Stats{
			BytesSent:       s.BytesSent,
			BytesReceived:   s.BytesReceived,
			PacketsSent:     s.PacketsSent,
			PacketsReceived: s.PacketsReceived,
		}
	}, func() int {
		n := 0
		for _, p := range host.Peers() {
			if p.State() == enet.StateConnected {
				n++
			}
		}
		return n
	})
	prometheus.MustRegister(collector)
	go serveMetrics(metricsAddr)

	logging.Section(fmt.Sprintf("listening on %s", bindAddr))
	logging.Info("host ready", "peer_limit", peerLimit, "channel_limit", channelLimit, "compress", compress, "checksum", checksum)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case sig := <-done:
			logging.Warn("shutting down", "signal", sig.String())
			for _, p := range host.Peers() {
				if p.State() == enet.StateConnected {
					p.Disconnect(0)
				}
			}
			_ = host.Flush()
			logging.Success("server stopped")
			return
		case <-ticker.C:
			serviceOnce(host)
		}
	}
}

func serviceOnce(host *enet.Host[string]) {
	for {
		ev, err := host.Service()
		if err != nil {
			logging.Error("service error", "error", err)
			return
		}
		switch ev.Type {
		case enet.EventNone:
			return
		case enet.EventConnect:
			logging.Info("peer connected", "peer", ev.Peer.ID(), "addr", ev.Peer.Address())
		case enet.EventDisconnect:
			logging.Info("peer disconnected", "peer", ev.Peer.ID(), "reason", ev.Reason.String())
		case enet.EventReceive:
			logging.Debug("packet received", "peer", ev.Peer.ID(), "channel", ev.ChannelID, "bytes", ev.Packet.Len())
			_ = ev.Peer.Send(ev.ChannelID, enet.NewPacket(ev.Packet.Data(), enet.PacketFlagReliable))
		}
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.Error("metrics server stopped", "error", err)
	}
}
