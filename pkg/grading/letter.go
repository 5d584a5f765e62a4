package grading

// Letter is a letter grade with its grade point.
type Letter struct {
	Letter string
	Point  float64
	Min    float64
}

var letterTable = []Letter{
	{Letter: "A+", Point: 4.00, Min: 80},
	{Letter: "A", Point: 3.75, Min: 75},
	{Letter: "A-", Point: 3.50, Min: 70},
	{Letter: "B+", Point: 3.25, Min: 65},
	{Letter: "B", Point: 3.00, Min: 60},
	{Letter: "B-", Point: 2.75, Min: 55},
	{Letter: "C+", Point: 2.50, Min: 50},
	{Letter: "C", Point: 2.25, Min: 45},
	{Letter: "D", Point: 2.00, Min: 40},
}

// LetterFor maps a final grade out of 100 onto the letter table.
func LetterFor(finalGrade float64) Letter {
	for _, l := range letterTable {
		if finalGrade >= l.Min {
			return l
		}
	}
	return Letter{Letter: "F", Point: 0}
}
