package utils

// Latency channels feeding the Prometheus gauges. Senders block until
// the collector goroutines in src-server/metric drain them, so only
// send from code paths that run while the collectors are up.
type Metric struct {
	DatabaseRead       chan float64
	DatabaseWrite      chan float64
	SplitDuration      chan float64
	DiscordSendMessage chan float64
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:       make(chan float64),
		DatabaseWrite:      make(chan float64),
		SplitDuration:      make(chan float64),
		DiscordSendMessage: make(chan float64),
	}
}
