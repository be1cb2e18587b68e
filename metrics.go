package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	adapterCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagery_adapter_calls_total",
		Help: "Image source calls by source and outcome (ok, error, timeout).",
	}, []string{"source", "outcome"})

	categoryLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagery_category_cache_lookups_total",
		Help: "Category cache lookups by result (hit, miss).",
	}, []string{"result"})

	aggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "imagery_aggregation_duration_seconds",
		Help:    "Time spent fanning out to all image sources for one category.",
		Buckets: prometheus.DefBuckets,
	})
)
