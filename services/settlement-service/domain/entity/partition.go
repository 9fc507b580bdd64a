package entity

// Partition marks, per item index, whether the initiating party keeps the
// item (true) or releases it to the counter-party (false).
type Partition []bool

// NewPartition returns a partition of n items, all kept
func NewPartition(n int) Partition {
	p := make(Partition, n)
	for i := range p {
		p[i] = true
	}
	return p
}

// Kept reports whether item i is kept. Indexes without an entry read as kept.
func (p Partition) Kept(i int) bool {
	if i < 0 || i >= len(p) {
		return true
	}
	return p[i]
}

// Released reports whether item i goes to the counter-party
func (p Partition) Released(i int) bool {
	return !p.Kept(i)
}

// Toggle flips item i, growing the partition if needed
func (p *Partition) Toggle(i int) {
	p.ensure(i + 1)
	(*p)[i] = !(*p)[i]
}

// Set assigns item i, growing the partition if needed
func (p *Partition) Set(i int, kept bool) {
	p.ensure(i + 1)
	(*p)[i] = kept
}

// Append adds an entry for a newly added item, kept by default
func (p *Partition) Append() {
	*p = append(*p, true)
}

// Release builds a partition of n items where the given indexes are
// released and everything else is kept. Out of range indexes are ignored.
func Release(n int, released ...int) Partition {
	p := NewPartition(n)
	for _, i := range released {
		if i >= 0 && i < n {
			p[i] = false
		}
	}
	return p
}

// ReleasedIndexes lists the released item indexes among the first n
func (p Partition) ReleasedIndexes(n int) []int {
	indexes := []int{}
	for i := 0; i < n; i++ {
		if p.Released(i) {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

func (p *Partition) ensure(n int) {
	for len(*p) < n {
		*p = append(*p, true)
	}
}
