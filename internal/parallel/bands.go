package parallel

// Band is a half-open range of image rows [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// Rows returns the number of rows in the band.
func (b Band) Rows() int {
	return b.Y1 - b.Y0
}

// bandsPerWorker is the number of bands queued per worker.
const bandsPerWorker = 4

// SplitRows partitions [0, height) into contiguous, disjoint bands that
// together cover every row exactly once. At most workers*4 bands are
// produced and no band is empty.
func SplitRows(height, workers int) []Band {
	if height <= 0 {
		return nil
	}
	n := min(max(workers, 1)*bandsPerWorker, height)

	bands := make([]Band, 0, n)
	base, extra := height/n, height%n
	y := 0
	for i := range n {
		rows := base
		if i < extra {
			rows++
		}
		bands = append(bands, Band{Y0: y, Y1: y + rows})
		y += rows
	}
	return bands
}
