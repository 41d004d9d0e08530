package waypoint

// Config holds the generator tuning values.
type Config struct {
	// MaxHeightRange bounds maxHeight-minHeight of every output polygon.
	MaxHeightRange float32
	// EvenSplitThreshold is the node extent (grid units) above which the
	// chosen split is replaced by an even bisection.
	EvenSplitThreshold float32
	// PointEpsilon quantizes heights when ordering points.
	PointEpsilon float32
	// VerticalProbeStep is the step used when searching a clean vertical cut.
	VerticalProbeStep float32
	// BalanceMin and BalanceMax bound the point-count ratio accepted by the
	// centroid bisection fallback.
	BalanceMin float32
	BalanceMax float32
	// FrontierHeightTolerance widens a polygon's band when testing frontier
	// points against it.
	FrontierHeightTolerance float32
	// FrontierInset is how far (grid units) a frontier point may lie outside
	// a polygon and still count as inside.
	FrontierInset float32
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		MaxHeightRange:          3,
		EvenSplitThreshold:      25,
		PointEpsilon:            0.001,
		VerticalProbeStep:       0.1,
		BalanceMin:              0.2,
		BalanceMax:              5,
		FrontierHeightTolerance: 1,
		FrontierInset:           0.05,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxHeightRange <= 0 {
		c.MaxHeightRange = d.MaxHeightRange
	}
	if c.EvenSplitThreshold <= 0 {
		c.EvenSplitThreshold = d.EvenSplitThreshold
	}
	if c.PointEpsilon <= 0 {
		c.PointEpsilon = d.PointEpsilon
	}
	if c.VerticalProbeStep <= 0 {
		c.VerticalProbeStep = d.VerticalProbeStep
	}
	if c.BalanceMin <= 0 {
		c.BalanceMin = d.BalanceMin
	}
	if c.BalanceMax <= 0 {
		c.BalanceMax = d.BalanceMax
	}
	if c.FrontierHeightTolerance <= 0 {
		c.FrontierHeightTolerance = d.FrontierHeightTolerance
	}
	if c.FrontierInset <= 0 {
		c.FrontierInset = d.FrontierInset
	}
	return c
}
