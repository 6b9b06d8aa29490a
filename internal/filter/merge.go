package filter

// Merge returns existing overlaid with next: every key in next wins, every
// other key of existing is kept. Neither argument is modified.
func Merge(existing, next Constraints) Constraints {
	out := existing.Clone()
	for k, v := range next {
		out[k] = v
	}
	return out
}
