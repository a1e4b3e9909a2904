package domain

// DefaultGenres is the genre catalogue every store is seeded with.
func DefaultGenres() []Genre {
	return []Genre{
		{ID: 1, Name: "Comedy"},
		{ID: 2, Name: "Drama"},
		{ID: 3, Name: "Animation"},
		{ID: 4, Name: "Thriller"},
		{ID: 5, Name: "Documentary"},
		{ID: 6, Name: "Action"},
	}
}

// DefaultRatings is the MPA rating catalogue every store is seeded with.
func DefaultRatings() []Rating {
	return []Rating{
		{ID: 1, Name: "G", Description: "General audiences, all ages admitted"},
		{ID: 2, Name: "PG", Description: "Parental guidance suggested"},
		{ID: 3, Name: "PG-13", Description: "Parents strongly cautioned, may be inappropriate for children under 13"},
		{ID: 4, Name: "R", Description: "Restricted, under 17 requires accompanying parent or adult guardian"},
		{ID: 5, Name: "NC-17", Description: "Adults only, no one 17 and under admitted"},
	}
}
