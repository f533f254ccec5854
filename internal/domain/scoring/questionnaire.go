package scoring

// Item is a single slider of the questionnaire.
type Item struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Category groups items for display. Grouping does not affect scoring.
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// DefaultRating is the initial slider position on a fresh form.
const DefaultRating = 5

// Questionnaire returns the ten items grouped by category, in index order.
func Questionnaire() []Category {
	return []Category{
		{Name: "Performance", Items: []Item{
			{Index: 0, Label: "Experiência"},
			{Index: 1, Label: "Entregas"},
			{Index: 2, Label: "Habilidades"},
			{Index: 3, Label: "Problemas"},
		}},
		{Name: "Energia", Items: []Item{
			{Index: 4, Label: "Disponibilidade"},
			{Index: 5, Label: "Ritmo"},
			{Index: 6, Label: "Pressão"},
		}},
		{Name: "Cultura", Items: []Item{
			{Index: 7, Label: "Valores"},
			{Index: 8, Label: "Colaboração"},
			{Index: 9, Label: "Comunicação"},
		}},
	}
}

// DefaultRatings returns a fresh form's slider values.
func DefaultRatings() [ItemCount]int {
	var r [ItemCount]int
	for i := range r {
		r[i] = DefaultRating
	}
	return r
}
