package h2sig

// Band grades how decisive a signature match is.
type Band int

const (
	BandNone Band = iota
	BandLow
	BandMedium
	BandHigh
)

func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMedium:
		return "medium"
	case BandHigh:
		return "high"
	}
	return "none"
}

// BandFor maps a score to its band.
func BandFor(score float64) Band {
	switch {
	case score >= 0.90:
		return BandHigh
	case score >= 0.75:
		return BandMedium
	case score >= 0.60:
		return BandLow
	}
	return BandNone
}

// Result is one analyzed connection opening. Label is empty when no
// profile scored above the floor; Settings and Order are always populated
// from the observed frame.
type Result struct {
	Label    string
	Score    float64
	Band     Band
	Settings []Setting
	Order    []uint16
}

type settingsProfile struct {
	label    string
	expected map[uint16]uint32
}

// Analyzer scores observed SETTINGS against per-implementation profiles.
type Analyzer struct {
	profiles []settingsProfile

	// windowLabels short-circuits on INITIAL_WINDOW_SIZE, the strongest
	// single discriminator between engines.
	windowLabels map[uint32]string
}

// NewAnalyzer builds an analyzer with the built-in browser profiles.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		profiles: []settingsProfile{
			{label: "Chrome", expected: map[uint16]uint32{
				SettingHeaderTableSize:      65536,
				SettingEnablePush:           0,
				SettingMaxConcurrentStreams: 1000,
				SettingInitialWindowSize:    6291456,
				SettingMaxFrameSize:         16384,
				SettingMaxHeaderListSize:    262144,
			}},
			{label: "Firefox", expected: map[uint16]uint32{
				SettingHeaderTableSize:      65536,
				SettingEnablePush:           0,
				SettingMaxConcurrentStreams: 1000,
				SettingInitialWindowSize:    131072,
				SettingMaxFrameSize:         16384,
				SettingMaxHeaderListSize:    262144,
			}},
			{label: "Safari", expected: map[uint16]uint32{
				SettingHeaderTableSize:      65536,
				SettingEnablePush:           1,
				SettingMaxConcurrentStreams: 100,
				SettingInitialWindowSize:    2097152,
				SettingMaxFrameSize:         16384,
			}},
		},
		windowLabels: map[uint32]string{
			6291456: "Chrome",
			131072:  "Firefox",
			2097152: "Safari",
		},
	}
}

// labelFloor is the minimum full-comparison score that earns a label.
const labelFloor = 0.70

// Analyze inspects the first bytes a client sent on a connection. The
// second return is false when there is no HTTP/2 signal at all (no preface
// at offset zero, or no SETTINGS frame); a true return with an empty Label
// means the opening was HTTP/2 but matched no known implementation.
func (a *Analyzer) Analyze(data []byte) (Result, bool) {
	frame, ok := FindSettings(data)
	if !ok {
		return Result{}, false
	}

	res := Result{
		Settings: frame.Settings,
		Order:    frame.Order(),
	}

	if window, ok := frame.Get(SettingInitialWindowSize); ok {
		if label, ok := a.windowLabels[window]; ok {
			res.Label = label
			res.Score = 0.95
			res.Band = BandFor(res.Score)
			return res, true
		}
	}

	label, score := a.matchFull(&frame)
	res.Score = score
	if score >= labelFloor {
		res.Label = label
	}
	res.Band = BandFor(res.Score)
	return res, true
}

func (a *Analyzer) matchFull(frame *SettingsFrame) (string, float64) {
	bestLabel, bestScore := "", 0.0
	for _, p := range a.profiles {
		if score := similarity(frame, p.expected); score > bestScore {
			bestLabel, bestScore = p.label, score
		}
	}
	return bestLabel, bestScore
}

// similarity is the fraction of a profile's expected parameters the
// observed frame reproduces. A plausible non-default window size earns
// partial credit since proxies commonly rewrite it.
func similarity(frame *SettingsFrame, expected map[uint16]uint32) float64 {
	if len(frame.Settings) == 0 || len(expected) == 0 {
		return 0.0
	}
	matched, total := 0, 0
	for id, want := range expected {
		total++
		got, ok := frame.Get(id)
		if !ok {
			continue
		}
		if got == want || (id == SettingInitialWindowSize && plausibleWindowSize(got)) {
			matched++
		}
	}
	return float64(matched) / float64(total)
}

func plausibleWindowSize(size uint32) bool {
	switch size {
	case 65535, 131072, 262144, 524288, 1048576, 2097152, 4194304, 6291456:
		return true
	}
	return false
}
