package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	editorMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagecraft",
			Subsystem: "editor",
			Name:      "mutations_total",
			Help:      "成功执行的文档变更次数。",
		},
		[]string{"op"},
	)

	snapshotPersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pagecraft",
			Subsystem: "snapshot",
			Name:      "persist_failures_total",
			Help:      "快照写入失败次数（变更本身不回滚）。",
		},
	)

	snapshotRecoveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pagecraft",
			Subsystem: "snapshot",
			Name:      "recoveries_total",
			Help:      "加载时遇到损坏快照并回退到默认模板的次数。",
		},
	)
)

// ObserveMutation counts one successful document mutation.
func ObserveMutation(op string) {
	editorMutationsTotal.WithLabelValues(op).Inc()
}

// ObservePersistFailure counts a snapshot write that failed after a mutation.
func ObservePersistFailure() {
	snapshotPersistFailuresTotal.Inc()
}

// ObserveRecovery counts a malformed snapshot replaced by the default template.
func ObserveRecovery() {
	snapshotRecoveriesTotal.Inc()
}
