package torrent

import (
	"time"

	"github.com/rcrowley/go-metrics"
)

// sessionMetrics feeds a go-metrics registry from the session's
// counters. The registry is exported over expvar on the RPC server.
type sessionMetrics struct {
	registry metrics.Registry

	Torrents          metrics.Gauge
	PendingAdds       metrics.Gauge
	MetadataDownloads metrics.Gauge
	QueuedMoves       metrics.Gauge
	BannedIPs         metrics.Gauge
	Uptime            metrics.Gauge
	SpeedDownload     metrics.Meter
	SpeedUpload       metrics.Meter
}

func newSessionMetrics(s *Session) *sessionMetrics {
	r := metrics.NewRegistry()
	return &sessionMetrics{
		registry: r,

		Uptime:            metrics.NewRegisteredFunctionalGauge("uptime", r, func() int64 { return int64(time.Since(s.createdAt) / time.Second) }),
		Torrents:          metrics.NewRegisteredFunctionalGauge("torrents", r, func() int64 { return s.counters.Read(counterTorrents) }),
		PendingAdds:       metrics.NewRegisteredFunctionalGauge("pending_adds", r, func() int64 { return s.counters.Read(counterPendingAdds) }),
		MetadataDownloads: metrics.NewRegisteredFunctionalGauge("metadata_downloads", r, func() int64 { return s.counters.Read(counterMetadataProbes) }),
		QueuedMoves:       metrics.NewRegisteredFunctionalGauge("queued_moves", r, func() int64 { return s.counters.Read(counterQueuedMoves) }),
		BannedIPs:         metrics.NewRegisteredFunctionalGauge("banned_ips", r, func() int64 { return s.counters.Read(counterBannedIPs) }),
		SpeedDownload:     metrics.NewRegisteredMeter("speed_download", r),
		SpeedUpload:       metrics.NewRegisteredMeter("speed_upload", r),
	}
}

func (m *sessionMetrics) Close() {
	m.SpeedDownload.Stop()
	m.SpeedUpload.Stop()
}
