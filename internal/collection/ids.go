package collection

import "time"

// NextID returns an id strictly greater than both the persisted sequence and
// every id already present, preferring the creation time in milliseconds so
// ids stay compatible with older millisecond-based backups.
func NextID(now time.Time, sequence int64, existing []int64) int64 {
	next := now.UnixMilli()
	if sequence >= next {
		next = sequence + 1
	}
	for _, id := range existing {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// MaxID returns the largest id in ids, or 0.
func MaxID(ids []int64) int64 {
	var max int64
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max
}
