package stats

import "github.com/verte-zerg/gradebook/internal/model"

// Percentile returns the share of the population scoring at or below user,
// as a value in [0,100]. Ties count in the user's favor.
func Percentile(user float64, population []float64) (float64, error) {
	if len(population) == 0 {
		return 0, model.ErrEmptyPopulation
	}
	atOrBelow := 0
	for _, s := range population {
		if s <= user {
			atOrBelow++
		}
	}
	return 100 * float64(atOrBelow) / float64(len(population)), nil
}
