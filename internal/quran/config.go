package quran

// Config carries every tunable threshold of the alignment engine. Values are
// threaded explicitly; the engine holds no mutable package state so that two
// runs over identical inputs produce identical marker lists.
type Config struct {
	MinScore      float64 `mapstructure:"min_score" json:"min_score"`
	MinOverlap    float64 `mapstructure:"min_overlap" json:"min_overlap"`
	MinConfidence float64 `mapstructure:"min_confidence" json:"min_confidence"`
	MinGapSeconds int     `mapstructure:"min_gap_seconds" json:"min_gap_seconds"`

	AmbiguousMinScore      float64 `mapstructure:"ambiguous_min_score" json:"ambiguous_min_score"`
	AmbiguousMinConfidence float64 `mapstructure:"ambiguous_min_confidence" json:"ambiguous_min_confidence"`

	MaxForwardJumpAyat  int `mapstructure:"max_forward_jump_ayat" json:"max_forward_jump_ayat"`
	MaxRecoveryJumpAyat int `mapstructure:"max_recovery_jump_ayat" json:"max_recovery_jump_ayat"`

	DuplicateAyahWindowSeconds int `mapstructure:"duplicate_ayah_window_seconds" json:"duplicate_ayah_window_seconds"`

	MaxInferGapAyat     int     `mapstructure:"max_infer_gap_ayat" json:"max_infer_gap_ayat"`
	MaxInferGapSeconds  int     `mapstructure:"max_infer_gap_seconds" json:"max_infer_gap_seconds"`
	MinInferStepSeconds float64 `mapstructure:"min_infer_step_seconds" json:"min_infer_step_seconds"`
	MaxInferStepSeconds float64 `mapstructure:"max_infer_step_seconds" json:"max_infer_step_seconds"`
	MaxLeadingInferAyat int     `mapstructure:"max_leading_infer_ayat" json:"max_leading_infer_ayat"`

	RepeatLookbackAyat  int     `mapstructure:"repeat_lookback_ayat" json:"repeat_lookback_ayat"`
	RepeatMinScore      float64 `mapstructure:"repeat_min_score" json:"repeat_min_score"`
	RepeatMinOverlap    float64 `mapstructure:"repeat_min_overlap" json:"repeat_min_overlap"`
	RepeatMinConfidence float64 `mapstructure:"repeat_min_confidence" json:"repeat_min_confidence"`
	RepeatMaxGapSeconds int     `mapstructure:"repeat_max_gap_seconds" json:"repeat_max_gap_seconds"`

	NonRecitationHoldSeconds  int `mapstructure:"non_recitation_hold_seconds" json:"non_recitation_hold_seconds"`
	LongBreakReacquireSeconds int `mapstructure:"long_break_reacquire_seconds" json:"long_break_reacquire_seconds"`

	RequireWeakSupportForInferred bool `mapstructure:"require_weak_support_for_inferred" json:"require_weak_support_for_inferred"`
	StrictNormalization           bool `mapstructure:"strict_normalization" json:"strict_normalization"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MinScore:      78,
		MinOverlap:    0.18,
		MinConfidence: 0.62,
		MinGapSeconds: 8,

		AmbiguousMinScore:      74,
		AmbiguousMinConfidence: 0.50,

		MaxForwardJumpAyat:  2,
		MaxRecoveryJumpAyat: 12,

		DuplicateAyahWindowSeconds: 120,

		MaxInferGapAyat:     8,
		MaxInferGapSeconds:  720,
		MinInferStepSeconds: 4.0,
		MaxInferStepSeconds: 28.0,
		MaxLeadingInferAyat: 3,

		RepeatLookbackAyat:  1,
		RepeatMinScore:      90,
		RepeatMinOverlap:    0.25,
		RepeatMinConfidence: 0.80,
		RepeatMaxGapSeconds: 45,

		NonRecitationHoldSeconds:  16,
		LongBreakReacquireSeconds: 180,

		RequireWeakSupportForInferred: true,
		StrictNormalization:           false,
	}
}

// reacquireRepeatMaxGapSeconds relaxes the repeat gap while awaiting
// reacquire so a carried-over ayah can absorb segments after a long pause.
const reacquireRepeatMaxGapSeconds = 900

// acquisitionScanAyat bounds how many corpus entries the matcher probes from
// the forced-start index before the first anchor is acquired.
const acquisitionScanAyat = 40

// recoveryScanAyat bounds the long-jump recovery forward scan.
const recoveryScanAyat = 60

// transitionTailMaxAyat bounds how many trailing ayat of the previous surah
// the matcher backfills when accepting a cross-surah transition.
const transitionTailMaxAyat = 12

// resetDeferralSeconds is how far inferred placement is pushed past a reset
// timestamp, and the window the post-reset deferral pass clears.
const resetDeferralSeconds = 34

// interpolationResetShiftSeconds is where an interpolated marker that would
// land within resetDeferralSeconds after a reset is placed, counted from the
// reset.
const interpolationResetShiftSeconds = 26
