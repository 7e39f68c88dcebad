// Package generator builds synthetic students and score records for demos.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/verte-zerg/gradebook/internal/model"
)

// Subjects offered per semester in generated data.
var Subjects = map[int][]string{
	1: {"Engineering Mathematics (EM-I)", "Programming in C (PIC)", "Digital Electronics (DE)", "Communication Skills (CS)"},
	2: {"Engineering Mathematics (EM-II)", "Object Oriented Programming (JAVA-I)", "Data Structures (DS)", "Computer Networks (CN)"},
	3: {"Advanced Java (JAVA-II)", "Database Management Systems (DBMS)", "Operating Systems (OS)", "Software Engineering (SE)"},
}

var (
	firstNames = []string{"Aarav", "Diya", "Kabir", "Meera", "Rohan", "Sara", "Ishaan", "Anaya", "Vihaan", "Nisha", "Arjun", "Tara"}
	lastNames  = []string{"Sharma", "Patel", "Iyer", "Khan", "Das", "Reddy", "Menon", "Joshi", "Gupta", "Nair"}
)

// Options controls the shape of generated data.
type Options struct {
	Students int
	// Spread is the standard deviation of a test score around the student's
	// ability.
	Spread float64
}

// Generator produces randomized rosters.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed, for reproducible data.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate builds students with records for every semester up to their
// current one. Each student has an ability level that biases all of their
// scores, so comparative and trend views show distinct profiles.
func (g *Generator) Generate(opts Options) ([]model.Student, []model.ScoreRecord) {
	if opts.Spread <= 0 {
		opts.Spread = 3
	}
	students := make([]model.Student, 0, opts.Students)
	var records []model.ScoreRecord
	for i := 0; i < opts.Students; i++ {
		st := model.Student{
			ID:       fmt.Sprintf("EN%04d", i+1),
			FullName: firstNames[g.rnd.Intn(len(firstNames))] + " " + lastNames[g.rnd.Intn(len(lastNames))],
			Semester: model.MinSemester + g.rnd.Intn(model.MaxSemester-model.MinSemester+1),
		}
		students = append(students, st)

		ability := 8 + g.rnd.Float64()*14
		for sem := model.MinSemester; sem <= st.Semester; sem++ {
			for _, subject := range Subjects[sem] {
				var tests [model.TestCount]float64
				for t := range tests {
					tests[t] = g.score(ability, opts.Spread)
				}
				records = append(records, model.NewScoreRecord(st.ID, sem, subject, tests))
			}
		}
	}
	return students, records
}

// score draws a value around ability, clamped to the valid range and
// rounded to half points.
func (g *Generator) score(ability, spread float64) float64 {
	v := ability + g.rnd.NormFloat64()*spread
	v = math.Max(model.MinScore, math.Min(model.MaxScore, v))
	return math.Round(v*2) / 2
}
