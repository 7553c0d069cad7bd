package viz

// Performance is the per-epoch evaluation record: named scalar metrics in
// insertion order, plus an optional confusion matrix and batch timing. It is
// created fresh each evaluation epoch, logged, and not retained.
type Performance struct {
	keys   []string
	values map[string]float64

	// ConfMatrix is printed as-is and rendered separately; it is never
	// forwarded with the scalar metrics.
	ConfMatrix [][]int
	// AvgRunTimeMS is the average batch time; a timing value, not a metric.
	AvgRunTimeMS float64
}

// NewPerformance creates an empty performance record.
func NewPerformance() *Performance {
	return &Performance{values: make(map[string]float64)}
}

// Set stores a named scalar metric, preserving first-insertion order.
func (p *Performance) Set(name string, value float64) {
	if _, exists := p.values[name]; !exists {
		p.keys = append(p.keys, name)
	}
	p.values[name] = value
}

// Get returns a named scalar metric.
func (p *Performance) Get(name string) (float64, bool) {
	value, ok := p.values[name]
	return value, ok
}

// Names returns the metric names in insertion order.
func (p *Performance) Names() []string {
	names := make([]string, len(p.keys))
	copy(names, p.keys)
	return names
}

// Scalars returns a copy of the scalar metrics. The confusion matrix and
// timing value are excluded structurally.
func (p *Performance) Scalars() map[string]float64 {
	scalars := make(map[string]float64, len(p.values))
	for name, value := range p.values {
		scalars[name] = value
	}
	return scalars
}
