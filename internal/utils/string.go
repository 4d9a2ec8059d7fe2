package utils

import (
	"context"
	"math"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// FindClosestString returns the candidate with the smallest edit distance to v, ok is false
// if the smallest distance is greater than maxDifferences or if the context is done.
func FindClosestString(ctx context.Context, candidates []string, v string, maxDifferences int) (closest string, distance int, ok bool) {
	distance = math.MaxInt
	target := []rune(v)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return "", -1, false
		}

		d := levenshtein.DistanceForStrings([]rune(candidate), target, levenshtein.DefaultOptionsWithSub)
		if d < distance {
			distance = d
			closest = candidate
		}
	}

	if closest == "" || distance > maxDifferences {
		return "", -1, false
	}
	return closest, distance, true
}
