package cluster

// Noise marks points not assigned to any dense region.
const Noise = -1

// dbscan assigns a cluster label to every vector, or Noise. Distance is
// cosine distance on pre-normalized vectors. minPts counts the point
// itself. Labels are assigned in input order, so a fixed input yields a
// fixed labelling.
func dbscan(vectors [][]float32, eps float64, minPts int) []int {
	n := len(vectors)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}

	visited := make([]bool, n)
	clusterID := 0

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(vectors, i, eps)
		if len(neighbors) < minPts {
			continue // stays noise unless claimed as a border point later
		}

		labels[i] = clusterID
		// Expand the cluster breadth-first over density-reachable points.
		queue := append([]int(nil), neighbors...)
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == Noise {
				labels[j] = clusterID
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			jNeighbors := regionQuery(vectors, j, eps)
			if len(jNeighbors) >= minPts {
				queue = append(queue, jNeighbors...)
			}
		}
		clusterID++
	}

	return labels
}

// regionQuery returns indices within eps of point i, including i itself.
func regionQuery(vectors [][]float32, i int, eps float64) []int {
	var neighbors []int
	for j := range vectors {
		if cosineDistance(vectors[i], vectors[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// cosineDistance is 1 - dot(a, b) for unit-length vectors.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1.0 - dot
}
