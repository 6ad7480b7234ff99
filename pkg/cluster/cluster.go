// Package cluster groups observed integer widths into buckets of similar
// values, so that column alignment can pad each bucket to its own maximum
// instead of padding everything to one global maximum.
package cluster

// IntegerCluster partitions integers greedily. A new value joins the first
// existing bucket whose current maximum is within the dispersion of it and
// otherwise starts a new bucket.
//
// Only the bucket maximum is compared, so a bucket grown by a rising chain
// of values can span more than the dispersion from end to end.
type IntegerCluster struct {
	dispersion int
	maxes      []int       // current maximum per bucket, in creation order
	bucket     map[int]int // value -> bucket of its latest insertion
}

// New returns an empty IntegerCluster.
func New(dispersion int) *IntegerCluster {
	return &IntegerCluster{
		dispersion: dispersion,
		bucket:     map[int]int{},
	}
}

// Add inserts v and returns the index of the bucket it landed in.
func (c *IntegerCluster) Add(v int) int {
	for i, m := range c.maxes {
		if abs(m-v) <= c.dispersion {
			if v > m {
				c.maxes[i] = v
			}
			c.bucket[v] = i
			return i
		}
	}
	c.maxes = append(c.maxes, v)
	c.bucket[v] = len(c.maxes) - 1
	return len(c.maxes) - 1
}

// ClusterMax returns the current maximum of the bucket holding the latest
// insertion of v. For a value never added it returns v.
func (c *IntegerCluster) ClusterMax(v int) int {
	i, ok := c.bucket[v]
	if !ok {
		return v
	}
	return c.maxes[i]
}

// Len returns the number of buckets.
func (c *IntegerCluster) Len() int { return len(c.maxes) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
