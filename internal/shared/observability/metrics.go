package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokentrace_parsing_seconds",
		Help:    "Time spent parsing a stylesheet file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokentrace_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	FilesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokentrace_files_analyzed_total",
		Help: "Total number of stylesheet files analyzed across all scans.",
	})

	FileAnalysisErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokentrace_file_analysis_errors_total",
		Help: "Total number of files whose analysis failed and was excluded from aggregation.",
	})

	DeclarationsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tokentrace_declarations_total",
		Help: "Number of tracked declarations found in the latest scan.",
	})

	FilesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tokentrace_files_total",
		Help: "Number of analyzed files in the latest scan.",
	})

	GlobalPropagation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tokentrace_global_propagation_percent",
		Help: "Global token propagation percentage from the latest scan (-1 when not measurable).",
	})

	UnresolvedNames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tokentrace_unresolved_names_total",
		Help: "Number of distinct undefined custom-property names referenced in the latest scan.",
	})

	TraceSteps = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tokentrace_trace_steps",
		Help:    "Length of resolution traces built per declaration.",
		Buckets: []float64{1, 2, 3, 4, 6, 8, 12, 16},
	})

	ExternalCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokentrace_external_cache_hits_total",
		Help: "Total number of external-binding lookups served from the cache.",
	})

	ExternalCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokentrace_external_cache_misses_total",
		Help: "Total number of external-binding lookups that required collection.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tokentrace_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
