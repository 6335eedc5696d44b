package skysched

import (
	"strconv"
	"time"

	"github.com/midbel/toml"
	"github.com/pkg/errors"
)

// CatalogConfig is the TOML document config.Load reads: the scheduling-
// relevant scalars spec.md §6 names directly (session window, weights,
// per-band mode, thresholds), not the station/source text catalogs
// themselves (sked/VEX parsing stays an external collaborator). Grounded
// on busoc-assist's Assist/Duration TOML document (assist.go,
// settings.go).
type CatalogConfig struct {
	Session SessionConfig          `toml:"session"`
	Mode    ModeConfig             `toml:"mode"`
	Weights WeightFactorsConfig    `toml:"weights"`
	Sky     SkyCoverageConfig      `toml:"sky_coverage"`
}

// SessionConfig is the TOML shape of Session, grounded on assist.go's
// Duration wrapper for human-readable time fields.
type SessionConfig struct {
	Start time.Time `toml:"start"`
	End   time.Time `toml:"end"`

	Anchor            string `toml:"anchor"` // "individual" | "start_of_observing" | "end_of_observing"
	SubnettingEnabled bool   `toml:"subnetting_enabled"`
	FillinEnabled     bool   `toml:"fillin_enabled"`

	TimeSliceSeconds          int     `toml:"time_slice_seconds"`
	MaxEmptySlices            int     `toml:"max_empty_slices"`
	MinAngleBetweenSubnetting float64 `toml:"min_angle_between_subnetting_deg"`

	CustomSequence CustomScanSequenceConfig `toml:"custom_sequence"`
}

// CustomScanSequenceConfig is the TOML shape of CustomScanSequence. TOML
// table keys are strings, so TargetSources is decoded as a bucket-index
// string keyed table and converted to int keys by BuildSession.
type CustomScanSequenceConfig struct {
	Cadence       int                 `toml:"cadence"`
	TargetSources map[string][]string `toml:"target_sources"` // bucket index -> source names
}

// ModeConfig is the TOML shape of Mode.
type ModeConfig struct {
	Efficiency   float64              `toml:"efficiency"`
	SourceBackup string               `toml:"source_backup"`
	CorSyncMax   float64              `toml:"cor_sync_max"`
	Bands        map[string]BandModeConfig `toml:"band"`
}

// BandModeConfig is the TOML shape of one ModeBand entry.
type BandModeConfig struct {
	Channels      int     `toml:"channels"`
	BandwidthHz   float64 `toml:"bandwidth_hz"`
	WavelengthM   float64 `toml:"wavelength_m"`
	RecordingRate float64 `toml:"recording_rate_bps"`
}

// WeightFactorsConfig is the TOML shape of WeightFactors.
type WeightFactorsConfig struct {
	WObs   float64 `toml:"w_obs"`
	WSrc   float64 `toml:"w_src"`
	WSta   float64 `toml:"w_sta"`
	WBl    float64 `toml:"w_bl"`
	WDur   float64 `toml:"w_dur"`
	WIdle  float64 `toml:"w_idle"`
	WDecl  float64 `toml:"w_decl"`
	WLowEl float64 `toml:"w_low_el"`
	WSky   float64 `toml:"w_sky"`

	LowElevationStartDeg float64 `toml:"low_elevation_start_deg"`
	LowElevationFullDeg  float64 `toml:"low_elevation_full_deg"`
	LowDeclinationStartDeg float64 `toml:"low_declination_start_deg"`
	LowDeclinationFullDeg  float64 `toml:"low_declination_full_deg"`

	TauMin float64 `toml:"tau_min"`
	TauMax float64 `toml:"tau_max"`
}

// SkyCoverageConfig is the TOML shape of the sky-coverage novelty
// thresholds.
type SkyCoverageConfig struct {
	MaxAngleDeg    float64 `toml:"max_angle_deg"`
	MaxTimeSeconds float64 `toml:"max_time_seconds"`
}

// DefaultCatalogConfig returns the scheduler's out-of-the-box defaults,
// mirroring assist.go's Default() constructor.
func DefaultCatalogConfig() *CatalogConfig {
	return &CatalogConfig{
		Session: SessionConfig{
			Anchor:           "individual",
			TimeSliceSeconds: 60,
			MaxEmptySlices:   10,
			MinAngleBetweenSubnetting: 120,
		},
		Mode: ModeConfig{
			Efficiency:   0.95,
			SourceBackup: SourceBackupInternal,
		},
		Sky: SkyCoverageConfig{
			MaxAngleDeg:    30,
			MaxTimeSeconds: 1800,
		},
	}
}

// LoadCatalogConfig reads and decodes a TOML configuration document,
// seeding it with DefaultCatalogConfig's values first so the document
// only needs to override what differs from the defaults.
func LoadCatalogConfig(file string) (*CatalogConfig, error) {
	cfg := DefaultCatalogConfig()
	if err := toml.DecodeFile(file, cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", file)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *CatalogConfig) validate() error {
	if !c.Session.End.After(c.Session.Start) {
		return errors.WithStack(&ConfigurationError{Reason: "session end must be after start"})
	}
	if c.Mode.Efficiency <= 0 || c.Mode.Efficiency > 1 {
		return errors.WithStack(&ConfigurationError{Reason: "mode efficiency must be in (0, 1]"})
	}
	if len(c.Mode.Bands) == 0 {
		return errors.WithStack(&ConfigurationError{Reason: "mode must declare at least one band"})
	}
	for name, b := range c.Mode.Bands {
		if b.WavelengthM <= 0 {
			return errors.WithStack(&ConfigurationError{Reason: "band " + name + " must have a positive wavelength"})
		}
	}
	return nil
}

// BuildSession converts the decoded SessionConfig into a runtime Session
// anchored on clock. sources resolves the custom sequence's by-name
// target lists to catalog source IDs; it may be nil if no custom
// sequence is configured.
func (c *CatalogConfig) BuildSession(clock *SessionClock, sources *SourceList) Session {
	return Session{
		Clock:                     clock,
		Anchor:                    parseAnchor(c.Session.Anchor),
		SubnettingEnabled:         c.Session.SubnettingEnabled,
		FillinEnabled:             c.Session.FillinEnabled,
		TimeSliceSeconds:          c.Session.TimeSliceSeconds,
		MaxEmptySlices:            c.Session.MaxEmptySlices,
		MinAngleBetweenSubnetting: degToRad(c.Session.MinAngleBetweenSubnetting),
		CustomSequence:            c.Session.CustomSequence.build(sources),
	}
}

// build resolves a CustomScanSequenceConfig's by-name target lists into a
// runtime CustomScanSequence keyed by catalog source ID; unknown names are
// skipped rather than erroring, since a catalog can legitimately omit a
// source named in the sequence (e.g. a fillin-only tail end).
func (c CustomScanSequenceConfig) build(sources *SourceList) CustomScanSequence {
	seq := CustomScanSequence{Cadence: c.Cadence}
	if c.Cadence <= 0 || len(c.TargetSources) == 0 {
		return seq
	}
	seq.TargetSources = make(map[int][]int, len(c.TargetSources))
	for bucketStr, names := range c.TargetSources {
		bucket, err := strconv.Atoi(bucketStr)
		if err != nil {
			continue
		}
		var ids []int
		for _, name := range names {
			if sources == nil {
				continue
			}
			if src, ok := sources.ByName(name); ok {
				ids = append(ids, src.ID())
			}
		}
		seq.TargetSources[bucket] = ids
	}
	return seq
}

func parseAnchor(s string) AlignAnchor {
	switch s {
	case "start_of_observing":
		return AnchorStartOfObserving
	case "end_of_observing":
		return AnchorEndOfObserving
	default:
		return AnchorIndividual
	}
}

// BuildMode converts the decoded ModeConfig into a runtime Mode.
func (c *CatalogConfig) BuildMode() Mode {
	bands := make(map[string]ModeBand, len(c.Mode.Bands))
	for name, b := range c.Mode.Bands {
		bands[name] = ModeBand{
			Channels:      b.Channels,
			Bandwidth:     b.BandwidthHz,
			Wavelength:    b.WavelengthM,
			RecordingRate: b.RecordingRate,
		}
	}
	return Mode{
		Bands:        bands,
		Efficiency:   c.Mode.Efficiency,
		SourceBackup: c.Mode.SourceBackup,
		CorSyncMax:   c.Mode.CorSyncMax,
	}
}

// BuildWeights converts the decoded WeightFactorsConfig into a runtime
// WeightFactors.
func (c *CatalogConfig) BuildWeights() WeightFactors {
	w := c.Weights
	return WeightFactors{
		WObs: w.WObs, WSrc: w.WSrc, WSta: w.WSta, WBl: w.WBl, WDur: w.WDur,
		WIdle: w.WIdle, WDecl: w.WDecl, WLowEl: w.WLowEl, WSky: w.WSky,
		LowElevationRamp:   Ramp{Start: degToRad(w.LowElevationStartDeg), Full: degToRad(w.LowElevationFullDeg)},
		LowDeclinationRamp: Ramp{Start: degToRad(w.LowDeclinationStartDeg), Full: degToRad(w.LowDeclinationFullDeg)},
		TauMin:             w.TauMin,
		TauMax:             w.TauMax,
	}
}
