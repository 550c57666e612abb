package cache

// SeparationKeyOpts holds the options that change a separation result.
type SeparationKeyOpts struct {
	Threshold      float64 `json:"threshold"`
	Clustering     string  `json:"clustering"`
	Scale          float64 `json:"scale"`
	ForegroundMax  float64 `json:"foreground_max"`
	MiddleMax      float64 `json:"middle_max"`
	SpacingPercent float64 `json:"spacing_percent,omitempty"`
	BaseName       string  `json:"base_name"`
	DefaultCanvas  string  `json:"default_canvas"`
}

// SpacingKeyOpts holds the options that change a spacing result.
type SpacingKeyOpts struct {
	Percent       float64 `json:"percent"`
	DefaultCanvas string  `json:"default_canvas"`
}

// Keyer builds cache keys for pipeline results.
type Keyer interface {
	// SeparationKey is the key of the three layer documents of a master.
	SeparationKey(docHash string, opts SeparationKeyOpts) string

	// SpacingKey is the key of a spaced document.
	SpacingKey(docHash string, opts SpacingKeyOpts) string
}

// DefaultKeyer derives keys from a hash of the document hash and options.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) SeparationKey(docHash string, opts SeparationKeyOpts) string {
	return hashKey("separation", docHash, opts)
}

func (DefaultKeyer) SpacingKey(docHash string, opts SpacingKeyOpts) string {
	return hashKey("spacing", docHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis without colliding:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) SeparationKey(docHash string, opts SeparationKeyOpts) string {
	return k.prefix + k.inner.SeparationKey(docHash, opts)
}

func (k *ScopedKeyer) SpacingKey(docHash string, opts SpacingKeyOpts) string {
	return k.prefix + k.inner.SpacingKey(docHash, opts)
}
