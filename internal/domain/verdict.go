package domain

// VerdictKind tags which of the three alert states a Verdict carries.
type VerdictKind string

const (
	KindRaining VerdictKind = "raining"
	KindSoon    VerdictKind = "soon"
	KindClear   VerdictKind = "clear"
)

// Urgency refines a Soon verdict for display.
type Urgency string

const (
	UrgencyUrgent   Urgency = "urgent"
	UrgencyProbable Urgency = "probable"
)

// Level is the user-facing alert level: the three verdict kinds with Soon split by urgency.
type Level string

const (
	LevelRaining  Level = "raining"
	LevelUrgent   Level = "urgent"
	LevelProbable Level = "probable"
	LevelClear    Level = "clear"
)

// Verdict is the classifier output. Only the field matching Kind is meaningful:
// PrecipitationAmount for Raining, MinutesUntil for Soon.
type Verdict struct {
	Kind                VerdictKind `json:"kind"`
	PrecipitationAmount float64     `json:"precipitation_mm,omitempty"`
	MinutesUntil        int         `json:"minutes_until,omitempty"`
}

// Raining returns a verdict for rain falling right now.
func Raining(amount float64) Verdict {
	return Verdict{Kind: KindRaining, PrecipitationAmount: amount}
}

// Soon returns a verdict for rain expected in minutesUntil minutes.
func Soon(minutesUntil int) Verdict {
	return Verdict{Kind: KindSoon, MinutesUntil: minutesUntil}
}

// Clear returns a verdict for no rain now and none expected within the look-ahead.
func Clear() Verdict {
	return Verdict{Kind: KindClear}
}

// Urgency returns urgent when a Soon verdict is within soonThresholdMinutes and
// probable otherwise. Other kinds have no urgency.
func (v Verdict) Urgency(soonThresholdMinutes int) Urgency {
	if v.Kind != KindSoon {
		return ""
	}
	if v.MinutesUntil <= soonThresholdMinutes {
		return UrgencyUrgent
	}
	return UrgencyProbable
}

// Level maps the verdict onto the four display levels.
func (v Verdict) Level(soonThresholdMinutes int) Level {
	switch v.Kind {
	case KindRaining:
		return LevelRaining
	case KindSoon:
		if v.Urgency(soonThresholdMinutes) == UrgencyUrgent {
			return LevelUrgent
		}
		return LevelProbable
	default:
		return LevelClear
	}
}

// Equal reports whether two verdicts carry the same kind and payload.
func (v Verdict) Equal(other Verdict) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindRaining:
		return v.PrecipitationAmount == other.PrecipitationAmount
	case KindSoon:
		return v.MinutesUntil == other.MinutesUntil
	default:
		return true
	}
}
