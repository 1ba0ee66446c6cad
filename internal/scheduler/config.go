package scheduler

// TimeSlot is one fixed-width interval in the working-day grid. Break
// slots are never assigned.
type TimeSlot struct {
	ID      int    `json:"id"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Label   string `json:"label"`
	IsBreak bool   `json:"is_break,omitempty"`
}

// Weights holds the soft-constraint magnitudes. The values are
// empirically tuned and institution-specific, so they are configuration
// rather than constants.
type Weights struct {
	SpreadPenalty       int
	MorningLectureBonus int
	AfternoonLabBonus   int
	LateLecturePenalty  int
	ConsecutivePenalty  int

	EntryBase       int
	VeryLatePenalty int

	MorningSlotMax   int
	AfternoonSlotMin int
	LateSlotMin      int
	VeryLateSlot     int
}

// Config is the immutable per-run engine configuration. Passing it
// explicitly keeps concurrent runs for different institutions from
// sharing grid or weight state.
type Config struct {
	WorkingDays []string
	TimeSlots   []TimeSlot

	MaxConsecutiveHours   int
	DefaultWeeklyHours    int
	DefaultLabDuration    int
	DefaultBatchSize      int
	DefaultMaxWeeklyHours int
	CapacityFlex          float64

	Weights Weights

	MaxSwapAttempts    int
	MaxOptimizerPasses int

	// Seed drives the randomized day-scan order. Zero selects a
	// time-based seed; fixing it makes runs reproducible.
	Seed int64
}

// DefaultConfig returns the standard Monday-Friday grid of ten hourly
// slots between 08:00 and 18:00 with a lunch break at slot 5.
func DefaultConfig() Config {
	return Config{
		WorkingDays: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		TimeSlots: []TimeSlot{
			{ID: 1, Start: "08:00", End: "09:00", Label: "8:00 - 9:00"},
			{ID: 2, Start: "09:00", End: "10:00", Label: "9:00 - 10:00"},
			{ID: 3, Start: "10:00", End: "11:00", Label: "10:00 - 11:00"},
			{ID: 4, Start: "11:00", End: "12:00", Label: "11:00 - 12:00"},
			{ID: 5, Start: "12:00", End: "13:00", Label: "12:00 - 1:00 (Lunch)", IsBreak: true},
			{ID: 6, Start: "13:00", End: "14:00", Label: "1:00 - 2:00"},
			{ID: 7, Start: "14:00", End: "15:00", Label: "2:00 - 3:00"},
			{ID: 8, Start: "15:00", End: "16:00", Label: "3:00 - 4:00"},
			{ID: 9, Start: "16:00", End: "17:00", Label: "4:00 - 5:00"},
			{ID: 10, Start: "17:00", End: "18:00", Label: "5:00 - 6:00"},
		},
		MaxConsecutiveHours:   3,
		DefaultWeeklyHours:    3,
		DefaultLabDuration:    2,
		DefaultBatchSize:      60,
		DefaultMaxWeeklyHours: 20,
		CapacityFlex:          0.8,
		Weights: Weights{
			SpreadPenalty:       15,
			MorningLectureBonus: 10,
			AfternoonLabBonus:   15,
			LateLecturePenalty:  20,
			ConsecutivePenalty:  50,
			EntryBase:           50,
			VeryLatePenalty:     25,
			MorningSlotMax:      4,
			AfternoonSlotMin:    6,
			LateSlotMin:         8,
			VeryLateSlot:        9,
		},
		MaxSwapAttempts:    10,
		MaxOptimizerPasses: 200,
	}
}

// TeachingSlots returns the non-break slots in grid order.
func (c Config) TeachingSlots() []TimeSlot {
	slots := make([]TimeSlot, 0, len(c.TimeSlots))
	for _, s := range c.TimeSlots {
		if !s.IsBreak {
			slots = append(slots, s)
		}
	}
	return slots
}

// withDefaults fills zero-valued fields from DefaultConfig so partially
// specified configs stay usable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if len(c.WorkingDays) == 0 {
		c.WorkingDays = def.WorkingDays
	}
	if len(c.TimeSlots) == 0 {
		c.TimeSlots = def.TimeSlots
	}
	if c.MaxConsecutiveHours <= 0 {
		c.MaxConsecutiveHours = def.MaxConsecutiveHours
	}
	if c.DefaultWeeklyHours <= 0 {
		c.DefaultWeeklyHours = def.DefaultWeeklyHours
	}
	if c.DefaultLabDuration <= 0 {
		c.DefaultLabDuration = def.DefaultLabDuration
	}
	if c.DefaultBatchSize <= 0 {
		c.DefaultBatchSize = def.DefaultBatchSize
	}
	if c.DefaultMaxWeeklyHours <= 0 {
		c.DefaultMaxWeeklyHours = def.DefaultMaxWeeklyHours
	}
	// Values above 1 are legitimate: some institutions deliberately
	// over-book room capacity. Only non-positive values are unusable.
	if c.CapacityFlex <= 0 {
		c.CapacityFlex = def.CapacityFlex
	}
	if c.Weights == (Weights{}) {
		c.Weights = def.Weights
	}
	if c.MaxSwapAttempts <= 0 {
		c.MaxSwapAttempts = def.MaxSwapAttempts
	}
	if c.MaxOptimizerPasses <= 0 {
		c.MaxOptimizerPasses = def.MaxOptimizerPasses
	}
	return c
}
