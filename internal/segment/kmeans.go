package segment

import (
	"math"
	"slices"

	"sales-insight/internal/aggregate"
	"sales-insight/internal/models"
)

type ClusterMember struct {
	Customer string  `json:"customer"`
	Revenue  float64 `json:"revenue"`
	Cluster  int     `json:"cluster"`
}

type ClusterReport struct {
	K         int             `json:"k"`
	Centroids []float64       `json:"centroids"`
	Members   []ClusterMember `json:"members"`
}

// Cluster groups customers by total revenue with one-dimensional k-means.
// Centroids start at evenly spaced quantiles, so results are deterministic.
// Cluster 0 has the lowest centroid. k shrinks to the number of distinct
// revenue values. The bucketing is descriptive only.
func Cluster(t *models.Table, roles models.RoleMap, k int) models.Outcome[ClusterReport] {
	ranked := aggregate.ByDimension(t, roles, models.RoleCustomer, models.RoleRevenue)
	if !ranked.OK() {
		return models.Outcome[ClusterReport]{Status: ranked.Status, Missing: ranked.Missing, Reason: ranked.Reason}
	}
	if len(ranked.Value) == 0 {
		return models.Insufficient("no customers", ClusterReport{Centroids: []float64{}, Members: []ClusterMember{}})
	}

	values := make([]float64, len(ranked.Value))
	for i, e := range ranked.Value {
		values[i] = e.Value
	}
	centroids, labels := kmeans1D(values, k)

	rep := ClusterReport{K: len(centroids), Centroids: centroids, Members: make([]ClusterMember, len(values))}
	for i, e := range ranked.Value {
		rep.Members[i] = ClusterMember{Customer: e.Key, Revenue: e.Value, Cluster: labels[i]}
	}
	return models.Available(rep)
}

func kmeans1D(values []float64, k int) ([]float64, []int) {
	distinct := slices.Compact(slices.Sorted(slices.Values(values)))
	if k > len(distinct) {
		k = len(distinct)
	}
	if k < 1 {
		k = 1
	}

	centroids := make([]float64, k)
	for i := range centroids {
		q := 0.5
		if k > 1 {
			q = float64(i) / float64(k-1)
		}
		centroids[i] = Quantile(distinct, q)
	}

	labels := make([]int, len(values))
	for i, v := range values {
		labels[i] = nearest(centroids, v)
	}
	for iter := 0; iter < 300; iter++ {
		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range values {
			sums[labels[i]] += v
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}

		changed := false
		for i, v := range values {
			if best := nearest(centroids, v); best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// relabel so cluster ids ascend with centroid
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case centroids[a] < centroids[b]:
			return -1
		case centroids[a] > centroids[b]:
			return 1
		default:
			return 0
		}
	})
	rank := make([]int, k)
	sorted := make([]float64, k)
	for newID, oldID := range order {
		rank[oldID] = newID
		sorted[newID] = centroids[oldID]
	}
	for i := range labels {
		labels[i] = rank[labels[i]]
	}
	return sorted, labels
}

func nearest(centroids []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, mu := range centroids {
		if d := math.Abs(v - mu); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
