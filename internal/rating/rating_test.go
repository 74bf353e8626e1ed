package rating

import (
	"math"
	"testing"
)

func TestNewRatingPriors(t *testing.T) {
	r := NewRating()
	if r.Mu != Mu0 || r.Sigma != Sigma0 {
		t.Fatalf("prior = %+v, want (%v, %v)", r, Mu0, Sigma0)
	}
}

func TestScoreIsConservative(t *testing.T) {
	r := Rating{Mu: 30, Sigma: 2}
	if got, want := r.Score(), 30.0-3*2.0; got != want {
		t.Fatalf("Score() = %v, want %v", got, want)
	}
}

func TestUpdateFromEqualPriors(t *testing.T) {
	w, l := Update(NewRating(), NewRating())

	// Hand-computed from the model constants.
	const wantMuW = 29.205479
	const wantSigma = 7.195065

	if math.Abs(w.Mu-wantMuW) > 1e-3 {
		t.Errorf("winner mu = %v, want ~%v", w.Mu, wantMuW)
	}
	if math.Abs(l.Mu-(2*Mu0-wantMuW)) > 1e-3 {
		t.Errorf("loser mu = %v, want ~%v", l.Mu, 2*Mu0-wantMuW)
	}
	if math.Abs(w.Sigma-wantSigma) > 1e-3 || math.Abs(l.Sigma-wantSigma) > 1e-3 {
		t.Errorf("sigmas = (%v, %v), want ~%v", w.Sigma, l.Sigma, wantSigma)
	}
}

func TestUpdateMovesBeliefsInOppositeDirections(t *testing.T) {
	winner := Rating{Mu: 20, Sigma: 5}
	loser := Rating{Mu: 28, Sigma: 4}

	w, l := Update(winner, loser)

	if w.Mu <= winner.Mu {
		t.Errorf("winner mu did not increase: %v -> %v", winner.Mu, w.Mu)
	}
	if l.Mu >= loser.Mu {
		t.Errorf("loser mu did not decrease: %v -> %v", loser.Mu, l.Mu)
	}
	if w.Sigma >= winner.Sigma || l.Sigma >= loser.Sigma {
		t.Errorf("sigmas did not shrink: (%v, %v) -> (%v, %v)",
			winner.Sigma, loser.Sigma, w.Sigma, l.Sigma)
	}
}

func TestUpdateIsDeterministic(t *testing.T) {
	winner := Rating{Mu: 27.5, Sigma: 6.25}
	loser := Rating{Mu: 22.125, Sigma: 7.5}

	w1, l1 := Update(winner, loser)
	w2, l2 := Update(winner, loser)

	if w1 != w2 || l1 != l2 {
		t.Fatalf("repeated updates differ: (%+v, %+v) vs (%+v, %+v)", w1, l1, w2, l2)
	}
}

func TestWinProbability(t *testing.T) {
	a := NewRating()
	b := NewRating()

	if got := WinProbability(a, b); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("blind estimate between equal priors = %v, want 0.5", got)
	}

	stronger := Rating{Mu: 35, Sigma: 4}
	weaker := Rating{Mu: 20, Sigma: 4}
	p := WinProbability(stronger, weaker)
	if p <= 0.5 || p >= 1 {
		t.Errorf("WinProbability(strong, weak) = %v, want in (0.5, 1)", p)
	}

	if got := WinProbability(weaker, stronger) + p; math.Abs(got-1) > 1e-12 {
		t.Errorf("probabilities do not sum to 1: %v", got)
	}
}

func TestUpdateSurvivesExtremeUpset(t *testing.T) {
	// A huge underdog winning must not produce NaN from the pdf/cdf ratio.
	winner := Rating{Mu: -300, Sigma: 1}
	loser := Rating{Mu: 300, Sigma: 1}

	w, l := Update(winner, loser)
	for _, v := range []float64{w.Mu, w.Sigma, l.Mu, l.Sigma} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite posterior: winner=%+v loser=%+v", w, l)
		}
	}
	if w.Mu <= -300 {
		t.Errorf("upset winner mu did not increase: %v", w.Mu)
	}
}
