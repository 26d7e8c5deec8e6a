package granular

// grain is one voice record in the pool. A slot is owned exclusively by the
// engine while active and is reused in place; nothing here allocates after
// construction.
type grain struct {
	envPhase float64
	envInc   float64

	// playbackRate is the signed read-speed through buffer content, in
	// samples per sample. Negative means reverse.
	playbackRate float64

	// readPos is the current read offset in samples behind the write head.
	readPos float64

	panL      float64
	panR      float64
	amplitude float64

	reverse bool
	active  bool

	// acquiredAt orders grains for oldest-first stealing.
	acquiredAt uint64
}

// grainPool is a fixed-capacity arena of grain slots. When every slot is
// active, acquire steals the oldest active grain instead of failing.
type grainPool struct {
	grains      []grain
	activeCount int
}

func newGrainPool(capacity int) *grainPool {
	if capacity < 1 {
		capacity = 1
	}
	return &grainPool{grains: make([]grain, capacity)}
}

func (p *grainPool) capacity() int {
	return len(p.grains)
}

func (p *grainPool) active() int {
	return p.activeCount
}

// acquire returns a slot marked active with the given timestamp. A free slot
// is preferred; otherwise the active grain with the smallest acquiredAt is
// forcibly reused. Stealing is the only overflow policy.
func (p *grainPool) acquire(timestamp uint64) *grain {
	steal := -1
	for i := range p.grains {
		g := &p.grains[i]
		if !g.active {
			*g = grain{active: true, acquiredAt: timestamp}
			p.activeCount++
			return g
		}
		if steal < 0 || g.acquiredAt < p.grains[steal].acquiredAt {
			steal = i
		}
	}

	g := &p.grains[steal]
	*g = grain{active: true, acquiredAt: timestamp}
	return g
}

// release returns a grain to the free set.
func (p *grainPool) release(g *grain) {
	if !g.active {
		return
	}
	g.active = false
	p.activeCount--
}

// reset deactivates every slot.
func (p *grainPool) reset() {
	for i := range p.grains {
		p.grains[i] = grain{}
	}
	p.activeCount = 0
}
