package simulation

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatRating rounds a rating and groups its thousands, e.g. 1532.6 -> "1,533".
func FormatRating(rating float64) string {
	return humanize.Comma(int64(math.Round(rating)))
}

// Tier is a coarse colour band for a rating.
type Tier string

const (
	TierHigh   Tier = "green"
	TierMid    Tier = "yellow"
	TierLow    Tier = "orange"
	TierBottom Tier = "red"
)

// RatingTier returns the colour band for rating.
func RatingTier(rating float64) Tier {
	switch {
	case rating >= 1600:
		return TierHigh
	case rating >= 1500:
		return TierMid
	case rating >= 1400:
		return TierLow
	default:
		return TierBottom
	}
}

// Badge is a named rank shown next to a rating.
type Badge struct {
	Text  string
	Class string
}

// RatingBadge returns the rank badge for rating.
func RatingBadge(rating float64) Badge {
	switch {
	case rating >= 1700:
		return Badge{Text: "Elite", Class: "badge-gold"}
	case rating >= 1600:
		return Badge{Text: "Expert", Class: "badge-silver"}
	case rating >= 1500:
		return Badge{Text: "Advanced", Class: "badge-bronze"}
	case rating >= 1400:
		return Badge{Text: "Intermediate", Class: "badge-blue"}
	default:
		return Badge{Text: "Beginner", Class: "badge-gray"}
	}
}
