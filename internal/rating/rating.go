// Package rating implements the Bayesian skill model: each player carries a
// Gaussian belief (Mu, Sigma) over their latent skill, updated after every
// win/loss with a TrueSkill-style rule for two-player games. No draw outcome
// is modeled.
//
// The update for winner w against loser l is
//
//	c       = sqrt(2*beta^2 + sigma_w^2 + sigma_l^2)
//	t       = (mu_w - mu_l) / c
//	v       = pdf(t) / cdf(t)
//	gain    = v * (v + t)
//	mu_w'   = mu_w + (sigma_w^2 / c) * v
//	mu_l'   = mu_l - (sigma_l^2 / c) * v
//	sigma'^2 = sigma^2 * (1 - (sigma^2 / c^2) * gain)
//
// where pdf and cdf are the standard normal density and cumulative
// distribution. Before the update each sigma^2 is inflated by tau^2 to model
// skill drift over time. The update is deterministic: identical inputs
// produce bit-identical outputs.
package rating

import "math"

// Model constants, matching the classic TrueSkill defaults.
const (
	Mu0    = 25.0         // prior mean
	Sigma0 = Mu0 / 3.0    // prior uncertainty
	Beta   = Sigma0 / 2   // performance variance
	Tau    = Sigma0 / 100 // per-game belief decay

	// ScoreFactor is the uncertainty multiplier in the conservative score
	// mu - ScoreFactor*sigma used for ranking.
	ScoreFactor = 3.0
)

// Rating is a Gaussian skill belief.
type Rating struct {
	Mu    float64
	Sigma float64
}

// NewRating returns the prior belief for a player with no recorded games.
func NewRating() Rating {
	return Rating{Mu: Mu0, Sigma: Sigma0}
}

// Score is the conservative point estimate mu - 3*sigma used for ranking.
func (r Rating) Score() float64 {
	return r.Mu - ScoreFactor*r.Sigma
}

// Update applies one win/loss observation and returns the posterior beliefs
// for the winner and the loser.
func Update(winner, loser Rating) (Rating, Rating) {
	// Skill drift: inflate uncertainty before conditioning on the outcome.
	wVar := winner.Sigma*winner.Sigma + Tau*Tau
	lVar := loser.Sigma*loser.Sigma + Tau*Tau

	c := math.Sqrt(2*Beta*Beta + wVar + lVar)
	t := (winner.Mu - loser.Mu) / c
	v := vWin(t)
	w := v * (v + t)

	newWinner := Rating{
		Mu:    winner.Mu + wVar/c*v,
		Sigma: math.Sqrt(wVar * (1 - wVar/(c*c)*w)),
	}
	newLoser := Rating{
		Mu:    loser.Mu - lVar/c*v,
		Sigma: math.Sqrt(lVar * (1 - lVar/(c*c)*w)),
	}
	return newWinner, newLoser
}

// WinProbability estimates the probability that a beats b. It only depends
// on the current beliefs, so it is usable for players with no recorded games
// (a "blind" estimate); callers decide whether they trust it.
func WinProbability(a, b Rating) float64 {
	c := math.Sqrt(2*Beta*Beta + a.Sigma*a.Sigma + b.Sigma*b.Sigma)
	return normCDF((a.Mu - b.Mu) / c)
}

// vWin is the additive correction term pdf(t)/cdf(t) for a win outcome.
// For very negative t the direct ratio degenerates to 0/0; the limit
// -t is used instead.
func vWin(t float64) float64 {
	denom := normCDF(t)
	if denom < 1e-300 {
		return -t
	}
	return normPDF(t) / denom
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}
