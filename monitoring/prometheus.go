package monitoring

import (
	"net/http"

	"meshwallet/logx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type QueryKind string

var (
	QueryAccountData QueryKind = "account_data"
	QueryMeshTxs     QueryKind = "mesh_txs"
	QueryRewards     QueryKind = "rewards"
	QuerySubmit      QueryKind = "submit"
)

type walletPromMetrics struct {
	walletUpUnixSeconds prometheus.Gauge
	trackedAccounts     prometheus.Gauge
	reconcileCount      prometheus.Counter
	discardedPushCount  prometheus.Counter
	notificationCount   *prometheus.CounterVec
	backfillPageCount   prometheus.Counter
	queryRetryCount     *prometheus.CounterVec
	resubscribeCount    prometheus.Counter
	panicCount          prometheus.Counter
}

func newWalletPromMetrics() *walletPromMetrics {
	return &walletPromMetrics{
		walletUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "meshwallet_up_timestamp_unix_seconds",
				Help: "Unix timestamp of wallet daemon start",
			},
		),
		trackedAccounts: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "meshwallet_tracked_accounts",
				Help: "Number of accounts currently tracked by the manager",
			},
		),
		reconcileCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "meshwallet_reconcile_count",
				Help: "The total number of transaction/reward records merged into a store",
			},
		),
		discardedPushCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "meshwallet_discarded_push_count",
				Help: "The total number of malformed push payloads silently discarded",
			},
		),
		notificationCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshwallet_notification_count",
				Help: "The total number of UI notifications emitted",
			},
			[]string{"event"},
		),
		backfillPageCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "meshwallet_backfill_page_count",
				Help: "The total number of pages fetched during historical backfill",
			},
		),
		queryRetryCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshwallet_query_retry_count",
				Help: "The total number of remote query retries",
			},
			[]string{"query"},
		),
		resubscribeCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "meshwallet_resubscribe_count",
				Help: "The total number of tx-status stream re-subscriptions",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "meshwallet_panic_count",
				Help: "The total number of recovered panics in background goroutines",
			},
		),
	}
}

// Metrics are registered at import so background goroutines can record
// before InitMetrics runs.
var walletMetrics = newWalletPromMetrics()

// InitMetrics marks daemon start; collectors themselves are registered at import.
func InitMetrics() {
	walletMetrics.walletUpUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("METRIC", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetTrackedAccounts(count int) {
	walletMetrics.trackedAccounts.Set(float64(count))
}

func IncreaseReconcileCount() {
	walletMetrics.reconcileCount.Inc()
}

func IncreaseDiscardedPushCount() {
	walletMetrics.discardedPushCount.Inc()
}

func IncreaseNotificationCount(event string) {
	walletMetrics.notificationCount.With(prometheus.Labels{
		"event": event,
	}).Inc()
}

func IncreaseBackfillPageCount() {
	walletMetrics.backfillPageCount.Inc()
}

func IncreaseQueryRetryCount(kind QueryKind) {
	walletMetrics.queryRetryCount.With(prometheus.Labels{
		"query": string(kind),
	}).Inc()
}

func IncreaseResubscribeCount() {
	walletMetrics.resubscribeCount.Inc()
}

func IncreasePanicCount() {
	walletMetrics.panicCount.Inc()
}
