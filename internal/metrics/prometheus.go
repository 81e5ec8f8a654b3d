// Package metrics exposes Prometheus instrumentation for the voice channel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the adapter reports into.
type Metrics struct {
	// Session lifecycle
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsResumed prometheus.Counter

	// Pipeline
	MessagesReceived prometheus.Counter
	ControlCommands  prometheus.Counter
	DecodeFailures   prometheus.Counter
	STTFailures      prometheus.Counter
	TTSFailures      prometheus.Counter
	ArtifactFailures prometheus.Counter
	RepliesDelivered prometheus.Counter
	RepliesDropped   prometheus.Counter

	// Stage latencies
	DecodeDuration     prometheus.Histogram
	TranscribeDuration prometheus.Histogram
	SynthesizeDuration prometheus.Histogram
}

// New registers all collectors against reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid cross-test collisions.
func New(reg prometheus.Registerer) *Metrics {
	factory := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voicebridge", Name: name, Help: help,
		})
		reg.MustRegister(c)
		return c
	}
	hist := func(name, help string) prometheus.Histogram {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voicebridge", Name: name, Help: help,
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		})
		reg.MustRegister(h)
		return h
	}

	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voicebridge", Name: "active_sessions", Help: "Sessions currently registered.",
		}),
		SessionsCreated:  factory("sessions_created_total", "Fresh sessions confirmed."),
		SessionsResumed:  factory("sessions_resumed_total", "Sessions resumed with a requested id."),
		MessagesReceived: factory("messages_received_total", "user_uttered events admitted to the pipeline."),
		ControlCommands:  factory("control_commands_total", "Utterances handled on the control path."),
		DecodeFailures:   factory("decode_failures_total", "Audio payloads the codec rejected."),
		STTFailures:      factory("stt_failures_total", "Transcription attempts that failed."),
		TTSFailures:      factory("tts_failures_total", "Synthesis attempts that failed."),
		ArtifactFailures: factory("artifact_failures_total", "Artifact writes that failed."),
		RepliesDelivered: factory("replies_delivered_total", "bot_uttered events emitted."),
		RepliesDropped:   factory("replies_dropped_total", "Replies discarded for dead sessions."),

		DecodeDuration:     hist("decode_duration_seconds", "Audio decode latency."),
		TranscribeDuration: hist("transcribe_duration_seconds", "STT latency."),
		SynthesizeDuration: hist("synthesize_duration_seconds", "TTS latency."),
	}
	reg.MustRegister(m.ActiveSessions)
	return m
}
