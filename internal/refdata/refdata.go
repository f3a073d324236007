// Package refdata serves the platform's pre-set reference data, such as
// industries and their categories. The data is constant and versioned
// with the binary.
package refdata

// Industry is one of the platform's talent industries.
type Industry struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	OrderIndex int        `json:"order_index"`
	Slug       string     `json:"slug"`
	RoleID     int        `json:"role_id"`
	IconName   string     `json:"icon_name"`
	Categories []Category `json:"categories,omitempty"`
}

// Category is a talent category within an industry.
type Category struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Slug        string  `json:"slug"`
	IndustryID  int     `json:"industry_id"`
}

var industries = []Industry{
	{ID: 1, Name: "Beauty & Fashion", OrderIndex: 1, Slug: "star-beauty-and-fashion", RoleID: 1, IconName: "beauty-and-fashion.svg"},
	{ID: 2, Name: "Music & Dance", OrderIndex: 2, Slug: "star-music-dance", RoleID: 1, IconName: "music-dance.svg"},
	{ID: 3, Name: "Film, T.V. & Ent.", OrderIndex: 3, Slug: "star-film-tv-ent", RoleID: 1, IconName: "film-tv-ent.svg"},
}

var categories = map[int][]Category{
	1: {
		{ID: 10, Name: "Fashion Coordinator", Slug: "fashion-coordinator", IndustryID: 1},
		{ID: 11, Name: "Modeling", Slug: "modeling", IndustryID: 1},
		{ID: 13, Name: "Design & Manufacturing", Slug: "design-manufacturing", IndustryID: 1},
		{ID: 14, Name: "Cosmetology", Slug: "cosmetology", IndustryID: 1},
		{ID: 15, Name: "Beauty Pageant", Slug: "beauty-pageant", IndustryID: 1},
	},
	2: {
		{ID: 4, Name: "Singer", Slug: "singer", IndustryID: 2},
		{ID: 5, Name: "Dancing", Slug: "dancing", IndustryID: 2},
		{ID: 7, Name: "Musician", Slug: "musician", IndustryID: 2},
		{ID: 8, Name: "Musical Composition", Slug: "musical-composition", IndustryID: 2},
		{ID: 9, Name: "Music Production", Slug: "music-production", IndustryID: 2},
	},
	3: {
		{ID: 1, Name: "Filmmaking", Slug: "filmmaking", IndustryID: 3},
		{ID: 2, Name: "Acting", Slug: "acting", IndustryID: 3},
		{ID: 3, Name: "Radio", Slug: "radio", IndustryID: 3},
		{ID: 16, Name: "Events & Promotions", Slug: "events-promotions", IndustryID: 3},
		{ID: 17, Name: "Speaker", Slug: "speaker", IndustryID: 3},
		{ID: 18, Name: "Photography", Slug: "photography", IndustryID: 3},
		{ID: 19, Name: "Journalism", Slug: "journalism", IndustryID: 3},
	},
}

// Industries returns the industry list, with per-industry categories
// attached when withCategories is set. Callers receive fresh slices and
// may modify them freely.
func Industries(withCategories bool) []Industry {
	out := make([]Industry, len(industries))
	copy(out, industries)
	if !withCategories {
		return out
	}
	for i := range out {
		cats := categories[out[i].ID]
		out[i].Categories = make([]Category, len(cats))
		copy(out[i].Categories, cats)
	}
	return out
}
