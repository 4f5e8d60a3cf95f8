package bot

// nextIndex and prevIndex move a browse cursor through a fixed id list with
// wrap-around: stepping past the last entry lands on the first and the
// other way round.

func nextIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	return (i + 1) % n
}

func prevIndex(i, n int) int {
	if n == 0 {
		return 0
	}
	return (i - 1 + n) % n
}
