// Package metrics exposes the state of a node as prometheus metrics. Values
// are read from the node when the metrics are scraped.
package metrics

import (
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// NewRegistry constructs a registry holding the node metrics along with the
// standard go runtime and process collectors.
func NewRegistry(st *state.State) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),

		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "chain_height",
				Help:      "Height of the latest block in the local chain.",
			},
			func() float64 { return float64(len(st.RetrieveChain()) - 1) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "chain_difficulty",
				Help:      "Difficulty of the latest block in the local chain.",
			},
			func() float64 { return float64(st.RetrieveLatestBlock().Difficulty) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mempool_size",
				Help:      "Number of transactions waiting to be mined.",
			},
			func() float64 { return float64(st.QueryMempoolLength()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "wallet_balance",
				Help:      "Balance of the node's wallet against the local chain.",
			},
			func() float64 { return float64(st.QueryBalance()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "peers_connected",
				Help:      "Number of peer connections that are established.",
			},
			func() float64 { return float64(st.KnownPeers().Connected()) },
		),
	)

	return reg
}

// Handler returns the http handler serving the metrics in the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
