package domain

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxDriveDistanceKm applies when a partner has no explicit limit.
const DefaultMaxDriveDistanceKm = 50

// volumeSaturation is the completed-jobs count at which the volume term maxes out.
const volumeSaturation = 50.0

// Candidate is the eligibility-relevant view of a partner.
type Candidate struct {
	PartnerID          uuid.UUID
	CompanyName        string
	Status             Status
	MaxDriveDistanceKm *int
	ServicePostalCodes []string
	AverageRating      float64
	CompletedJobs      int
	IsSponsored        bool
}

// Distance is the move distance reported by the geocoding collaborator.
// A nil *Distance means the lookup failed and only postal codes apply.
type Distance struct {
	Km      float64
	Minutes int
}

// Weights blend the ranking score.
type Weights struct {
	Distance float64
	Rating   float64
	Volume   float64
}

// DefaultWeights favour proximity, then reputation, then experience.
var DefaultWeights = Weights{Distance: 0.5, Rating: 0.35, Volume: 0.15}

// Rejection reasons.
const (
	ReasonNotApproved = "partner is not approved"
	ReasonActiveOffer = "partner already holds an offer on this quote"
	ReasonPostalCode  = "quote origin is outside the partner's postal codes"
	ReasonTooFar      = "move distance exceeds the partner's drive limit"
	ReasonNoDistance  = "distance unavailable and partner has no postal code list"
)

// Decision is the outcome of evaluating one partner against one quote.
type Decision struct {
	Eligible bool
	Reason   string
}

// Evaluate applies the eligibility rules in order: approval, existing offer,
// then postal-code allow-list if set, otherwise drive distance.
func Evaluate(c Candidate, originPostalCode string, dist *Distance, defaultMaxKm int, hasActiveOffer bool) Decision {
	if c.Status != StatusApproved {
		return Decision{Reason: ReasonNotApproved}
	}
	if hasActiveOffer {
		return Decision{Reason: ReasonActiveOffer}
	}

	if len(c.ServicePostalCodes) > 0 {
		origin := normalizePostal(originPostalCode)
		for _, code := range c.ServicePostalCodes {
			if normalizePostal(code) == origin {
				return Decision{Eligible: true}
			}
		}
		return Decision{Reason: ReasonPostalCode}
	}

	if dist == nil {
		return Decision{Reason: ReasonNoDistance}
	}
	if dist.Km > float64(MaxDistance(c, defaultMaxKm)) {
		return Decision{Reason: ReasonTooFar}
	}
	return Decision{Eligible: true}
}

// MaxDistance returns the partner's drive limit or the default.
func MaxDistance(c Candidate, defaultMaxKm int) int {
	if c.MaxDriveDistanceKm != nil && *c.MaxDriveDistanceKm > 0 {
		return *c.MaxDriveDistanceKm
	}
	if defaultMaxKm > 0 {
		return defaultMaxKm
	}
	return DefaultMaxDriveDistanceKm
}

// Score blends distance, rating and volume into [0, 1] given non-negative weights summing to 1.
func Score(w Weights, c Candidate, dist *Distance, defaultMaxKm int) float64 {
	distanceTerm := 0.0
	if dist != nil {
		maxKm := float64(MaxDistance(c, defaultMaxKm))
		distanceTerm = 1 - math.Min(dist.Km/maxKm, 1)
	}
	ratingTerm := math.Max(0, math.Min(c.AverageRating/5, 1))
	volumeTerm := math.Min(float64(c.CompletedJobs)/volumeSaturation, 1)

	return w.Distance*distanceTerm + w.Rating*ratingTerm + w.Volume*volumeTerm
}

// Ranked is an eligible partner with its display score.
type Ranked struct {
	Candidate Candidate
	Score     float64
}

// Rank filters candidates and orders the eligible ones by score, then
// sponsorship, then company name. activeOffers holds partners that already bid.
func Rank(candidates []Candidate, originPostalCode string, dist *Distance, defaultMaxKm int, w Weights, activeOffers map[uuid.UUID]bool) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		if !Evaluate(c, originPostalCode, dist, defaultMaxKm, activeOffers[c.PartnerID]).Eligible {
			continue
		}
		out = append(out, Ranked{Candidate: c, Score: Score(w, c, dist, defaultMaxKm)})
	}
	Sort(out)
	return out
}

// Sort orders ranked partners for display.
func Sort(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Candidate.IsSponsored != b.Candidate.IsSponsored {
			return a.Candidate.IsSponsored
		}
		return strings.ToLower(a.Candidate.CompanyName) < strings.ToLower(b.Candidate.CompanyName)
	})
}

func normalizePostal(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "")
}
