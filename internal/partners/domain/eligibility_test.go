package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func candidate(name string, status Status) Candidate {
	return Candidate{PartnerID: uuid.New(), CompanyName: name, Status: status}
}

func TestNonApprovedPartnersNeverEligible(t *testing.T) {
	near := &Distance{Km: 1}
	for _, st := range []Status{StatusPending, StatusRejected, StatusSuspended, StatusMoreInfoRequested} {
		c := candidate("Flyttfirma AB", st)
		require.False(t, Evaluate(c, "11432", near, 50, false).Eligible, "status %s", st)

		c.ServicePostalCodes = []string{"11432"}
		require.False(t, Evaluate(c, "11432", near, 50, false).Eligible, "status %s with postal match", st)

		ranked := Rank([]Candidate{c}, "11432", near, 50, DefaultWeights, nil)
		require.Empty(t, ranked, "status %s leaked into ranking", st)
	}
}

func TestActiveOfferExcludes(t *testing.T) {
	c := candidate("Bärkraft Flytt", StatusApproved)
	d := Evaluate(c, "11432", &Distance{Km: 5}, 50, true)
	require.False(t, d.Eligible)
	require.Equal(t, ReasonActiveOffer, d.Reason)
}

func TestPostalCodesTakePrecedenceOverDistance(t *testing.T) {
	c := candidate("Norrflytt", StatusApproved)
	c.ServicePostalCodes = []string{"11432", "75321"}

	require.True(t, Evaluate(c, "114 32", &Distance{Km: 500}, 50, false).Eligible)
	d := Evaluate(c, "41101", &Distance{Km: 1}, 50, false)
	require.False(t, d.Eligible)
	require.Equal(t, ReasonPostalCode, d.Reason)
}

func TestDistanceLimit(t *testing.T) {
	c := candidate("Sydflytt", StatusApproved)

	require.True(t, Evaluate(c, "11432", &Distance{Km: 50}, 50, false).Eligible)
	require.False(t, Evaluate(c, "11432", &Distance{Km: 50.1}, 50, false).Eligible)

	c.MaxDriveDistanceKm = intPtr(120)
	require.True(t, Evaluate(c, "11432", &Distance{Km: 100}, 50, false).Eligible)
}

func TestDistanceFailureFallsBackToPostalCodes(t *testing.T) {
	withCodes := candidate("Postflytt", StatusApproved)
	withCodes.ServicePostalCodes = []string{"11432"}
	radiusOnly := candidate("Radieflytt", StatusApproved)

	require.True(t, Evaluate(withCodes, "11432", nil, 50, false).Eligible)
	d := Evaluate(radiusOnly, "11432", nil, 50, false)
	require.False(t, d.Eligible)
	require.Equal(t, ReasonNoDistance, d.Reason)
}

func TestScoreBlend(t *testing.T) {
	c := candidate("Mittflytt", StatusApproved)
	c.AverageRating = 5
	c.CompletedJobs = 100

	// d = 0 gives full distance term; rating and volume saturate.
	require.InDelta(t, 1.0, Score(DefaultWeights, c, &Distance{Km: 0}, 50), 1e-9)

	c.AverageRating = 2.5
	c.CompletedJobs = 25
	// 0.5*(1-25/50) + 0.35*0.5 + 0.15*0.5
	require.InDelta(t, 0.25+0.175+0.075, Score(DefaultWeights, c, &Distance{Km: 25}, 50), 1e-9)

	// Unknown distance contributes nothing.
	require.InDelta(t, 0.175+0.075, Score(DefaultWeights, c, nil, 50), 1e-9)
}

func TestRankOrdering(t *testing.T) {
	dist := &Distance{Km: 10}
	strong := candidate("Örebro Flytt", StatusApproved)
	strong.AverageRating = 4.8

	tieA := candidate("Beta Flytt", StatusApproved)
	tieB := candidate("Alfa Flytt", StatusApproved)
	sponsored := candidate("Ceta Flytt", StatusApproved)
	sponsored.IsSponsored = true

	ranked := Rank([]Candidate{tieA, sponsored, strong, tieB}, "11432", dist, 50, DefaultWeights, nil)
	require.Len(t, ranked, 4)
	require.Equal(t, "Örebro Flytt", ranked[0].Candidate.CompanyName)
	require.Equal(t, "Ceta Flytt", ranked[1].Candidate.CompanyName)
	require.Equal(t, "Alfa Flytt", ranked[2].Candidate.CompanyName)
	require.Equal(t, "Beta Flytt", ranked[3].Candidate.CompanyName)
}
