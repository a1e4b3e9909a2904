package domain

// UserView is the assembled user resource: the user row joined with its
// friend and liked-film id sets. Both sets are non-nil and ascending.
type UserView struct {
	ID         int64   `json:"id"`
	Email      string  `json:"email"`
	Login      string  `json:"login"`
	Name       string  `json:"name"`
	Birthday   Date    `json:"birthday"`
	Friends    []int64 `json:"friends"`
	LikedFilms []int64 `json:"likedFilms"`
}

// FilmView is the assembled film resource: the film row joined with its
// resolved rating, genres (ascending by id) and the ids of users who liked it.
type FilmView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ReleaseDate Date    `json:"releaseDate"`
	Duration    int     `json:"duration"`
	Mpa         *Rating `json:"mpa"`
	Genres      []Genre `json:"genres"`
	Likes       []int64 `json:"likes"`
}
