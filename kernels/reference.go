package kernels

// Host reference implementations for validation. They work directly off the
// packed layout rather than the dense gradient grid the device path uses, so
// a grid-expansion bug cannot cancel out between kernel and reference.

// ForwardReference computes the packed interaction output on the host.
// input holds B batches of M x K rows; out holds B batches of
// PackedBatchSize(m, k) elements.
func ForwardReference(input, out []float32, m, k, b int) {
	packed := PackedBatchSize(m, k)
	for batch := 0; batch < b; batch++ {
		in := input[batch*m*k:]
		o := out[batch*packed:]
		copy(o[:k], in[:k])
		for i := 1; i < m; i++ {
			for j := 0; j < i; j++ {
				var dot float32
				for kk := 0; kk < k; kk++ {
					dot += in[i*k+kk] * in[j*k+kk]
				}
				o[k+TriIndex(i, j)] = dot
			}
		}
	}
}

// BackwardReference computes the input gradient and bottom MLP gradient on
// the host. upstream holds B batches of packed gradients; grad receives
// B x M x K, bottomGrad receives B x K.
func BackwardReference(input, upstream, bottomGrad, grad []float32, m, k, b int) {
	packed := PackedBatchSize(m, k)
	for batch := 0; batch < b; batch++ {
		in := input[batch*m*k:]
		up := upstream[batch*packed:]
		g := grad[batch*m*k:]
		bg := bottomGrad[batch*k:]

		copy(bg[:k], up[:k])

		for i := 0; i < m; i++ {
			for kk := 0; kk < k; kk++ {
				var sum float32
				for j := 0; j < m; j++ {
					if i == j {
						continue
					}
					var gs float32
					if i > j {
						gs = up[k+TriIndex(i, j)]
					} else {
						gs = up[k+TriIndex(j, i)]
					}
					sum += gs * in[j*k+kk]
				}
				if i == 0 {
					sum += up[kk]
				}
				g[i*k+kk] = sum
			}
		}
	}
}
