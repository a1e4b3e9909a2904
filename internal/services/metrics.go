package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// relationMutations counts successful friendship and like mutations,
// labelled by relation (friendship|like) and op (add|remove).
var relationMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "filmorate",
		Name:      "relation_mutations_total",
		Help:      "Successful friendship and like mutations.",
	},
	[]string{"relation", "op"},
)

// popularQueries observes the requested size of top-N ranking queries.
var popularQueries = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "filmorate",
	Name:      "popular_query_size",
	Help:      "Requested count of popular-films queries.",
	Buckets:   []float64{1, 5, 10, 25, 50, 100, 500},
})
