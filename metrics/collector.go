// Package metrics exposes an enet.Host's cumulative traffic counters as
// Prometheus metrics, following the pull-based prometheus.Collector
// pattern the retrieved socket-statistics exporter uses for kernel
// TCP_INFO counters. The core enet package never imports this one;
// a caller registers a Collector built from Host.Statistics and a
// count of connected peers it supplies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Stats is the subset of enet.Statistics a Collector reports,
// mirrored here so that this package does not import enet.
type Stats struct {
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
}

// Collector implements prometheus.Collector over a Host's cumulative
// counters, polled on every scrape rather than pushed.
type Collector struct {
	stats         func() Stats
	connectedPeers func() int

	bytesSentDesc       *prometheus.Desc
	bytesReceivedDesc   *prometheus.Desc
	packetsSentDesc     *prometheus.Desc
	packetsReceivedDesc *prometheus.Desc
	connectedPeersDesc  *prometheus.Desc
}

// NewCollector builds a Collector that calls stats and connectedPeers
// on every scrape. constLabels apply to every metric this Collector
// exports (e.g. a host or listener name).
func NewCollector(namespace string, constLabels prometheus.Labels, stats func() Stats, connectedPeers func() int) *Collector {
	return &Collector{
		stats:          stats,
		connectedPeers: connectedPeers,
		bytesSentDesc: prometheus.NewDesc(
			namespace+"_bytes_sent_total", "Cumulative bytes sent.", nil, constLabels),
		bytesReceivedDesc: prometheus.NewDesc(
			namespace+"_bytes_received_total", "Cumulative bytes received.", nil, constLabels),
		packetsSentDesc: prometheus.NewDesc(
			namespace+"_packets_sent_total", "Cumulative datagrams sent.", nil, constLabels),
		packetsReceivedDesc: prometheus.NewDesc(
			namespace+"_packets_received_total", "Cumulative datagrams received.", nil, constLabels),
		connectedPeersDesc: prometheus.NewDesc(
			namespace+"_connected_peers", "Currently connected peers.", nil, constLabels),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.bytesSentDesc
	descs <- c.bytesReceivedDesc
	descs <- c.packetsSentDesc
	descs <- c.packetsReceivedDesc
	descs <- c.connectedPeersDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.bytesSentDesc, prometheus.CounterValue, float64(s.BytesSent))
	ch <- prometheus.MustNewConstMetric(c.bytesReceivedDesc, prometheus.CounterValue, float64(s.BytesReceived))
	ch <- prometheus.MustNewConstMetric(c.packetsSentDesc, prometheus.CounterValue, float64(s.PacketsSent))
	ch <- prometheus.MustNewConstMetric(c.packetsReceivedDesc, prometheus.CounterValue, float64(s.PacketsReceived))
	if c.connectedPeers != nil {
		ch <- prometheus.MustNewConstMetric(c.connectedPeersDesc, prometheus.GaugeValue, float64(c.connectedPeers()))
	}
}
