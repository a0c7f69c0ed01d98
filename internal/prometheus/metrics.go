package prometheus

import "github.com/prometheus/client_golang/prometheus"

const (
	synthesisBucketStart  = 0.05
	synthesisBucketFactor = 2.0
	synthesisBucketCount  = 12
)

const (
	encoderBucketStart  = 0.1
	encoderBucketFactor = 2.0
	encoderBucketCount  = 10
)

var ExamplesGenerated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "examples_generated_total",
		Help: "Number of composite examples successfully generated",
	},
)

var IterationsSkipped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "iterations_skipped_total",
		Help: "Number of synthesis iterations skipped",
	},
	[]string{"reason"},
)

var OverlapEventsInjected = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "overlap_events_injected_total",
		Help: "Number of overlap events mixed into main tracks",
	},
)

var SynthesisDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "example_synthesis_duration_seconds",
		Help: "Time taken to synthesize one composite example",
		Buckets: prometheus.ExponentialBuckets(
			synthesisBucketStart,
			synthesisBucketFactor,
			synthesisBucketCount,
		),
	},
)

var RecordsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "extract_records_processed_total",
		Help: "Number of records processed during feature extraction",
	},
	[]string{"shard"},
)

var RecordsSkipped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "extract_records_skipped_total",
		Help: "Number of malformed records skipped during feature extraction",
	},
	[]string{"shard"},
)

var EncoderRequestDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name: "encoder_request_duration_seconds",
		Help: "Time taken by one embedding encoder request",
		Buckets: prometheus.ExponentialBuckets(
			encoderBucketStart,
			encoderBucketFactor,
			encoderBucketCount,
		),
	},
)

var ExportOperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "export_operation_duration_seconds",
		Help: "Time taken by one object storage operation",
		Buckets: prometheus.ExponentialBuckets(
			encoderBucketStart,
			encoderBucketFactor,
			encoderBucketCount,
		),
	},
	[]string{"operation"},
)

func init() {
	prometheus.MustRegister(ExamplesGenerated)
	prometheus.MustRegister(IterationsSkipped)
	prometheus.MustRegister(OverlapEventsInjected)
	prometheus.MustRegister(SynthesisDuration)
	prometheus.MustRegister(RecordsProcessed)
	prometheus.MustRegister(RecordsSkipped)
	prometheus.MustRegister(EncoderRequestDuration)
	prometheus.MustRegister(ExportOperationDuration)
}
