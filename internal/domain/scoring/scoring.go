// Package scoring maps questionnaire answers to a fit score and a classification.
//
// Classification and display styling read the same ordered threshold table, so a
// label shown on the dashboard can never disagree with the label that was stored.
package scoring

// Questionnaire bounds.
const (
	ItemCount = 10
	MinRating = 0
	MaxRating = 10
	MaxScore  = ItemCount * MaxRating
)

// Label is a classification name as persisted with a candidate record.
type Label string

// Classification labels, highest tier first.
const (
	FitAltissimo    Label = "Fit Altíssimo"
	FitAprovado     Label = "Fit Aprovado"
	FitQuestionavel Label = "Fit Questionável"
	ForaDoPerfil    Label = "Fora do Perfil"
)

// Color is a badge color tag understood by the dashboard page.
type Color string

// Badge colors.
const (
	Green  Color = "green"
	Blue   Color = "blue"
	Yellow Color = "yellow"
	Red    Color = "red"
	Gray   Color = "gray"
)

// Tier is one row of the threshold table: scores >= Min fall into it unless a
// higher tier matched first.
type Tier struct {
	Min   int   `json:"min"`
	Label Label `json:"label"`
	Color Color `json:"color"`
}

// Style is the presentation of a score or a stored label.
type Style struct {
	Label Label `json:"label"`
	Color Color `json:"color"`
}

// Result bundles the derived fields written with a candidate record.
type Result struct {
	Score          int   `json:"fitScore"`
	Classification Label `json:"classification"`
}

// table is ordered by Min descending and its last tier starts at 0, which makes
// lookups total over [0, MaxScore].
var table = [...]Tier{
	{Min: 80, Label: FitAltissimo, Color: Green},
	{Min: 60, Label: FitAprovado, Color: Blue},
	{Min: 40, Label: FitQuestionavel, Color: Yellow},
	{Min: 0, Label: ForaDoPerfil, Color: Red},
}

// Table returns a copy of the threshold table, highest tier first.
func Table() []Tier {
	out := make([]Tier, len(table))
	copy(out, table[:])
	return out
}

// ComputeScore sums the ratings. All items weigh the same.
func ComputeScore(inputs [ItemCount]int) int {
	total := 0
	for _, v := range inputs {
		total += v
	}
	return total
}

// tierFor walks the table highest threshold first.
func tierFor(score int) Tier {
	for _, t := range table {
		if score >= t.Min {
			return t
		}
	}
	// Below every threshold; unreachable for in-range scores.
	return table[len(table)-1]
}

// Classify returns the label for score.
func Classify(score int) Label {
	return tierFor(score).Label
}

// StyleFor returns label and badge color for score.
func StyleFor(score int) Style {
	t := tierFor(score)
	return Style{Label: t.Label, Color: t.Color}
}

// StyleForLabel resolves a persisted label to its badge. Labels that are not in
// the current table (older data) keep their text and get a neutral color.
func StyleForLabel(label Label) Style {
	for _, t := range table {
		if t.Label == label {
			return Style{Label: t.Label, Color: t.Color}
		}
	}
	return Style{Label: label, Color: Gray}
}

// Evaluate computes score and classification in one step.
func Evaluate(inputs [ItemCount]int) Result {
	score := ComputeScore(inputs)
	return Result{Score: score, Classification: Classify(score)}
}

// BadgeClass maps a color to the CSS utility class used by the pages.
func BadgeClass(c Color) string {
	switch c {
	case Green:
		return "bg-green-500"
	case Blue:
		return "bg-blue-500"
	case Yellow:
		return "bg-yellow-500"
	case Red:
		return "bg-red-500"
	default:
		return "bg-gray-400"
	}
}
