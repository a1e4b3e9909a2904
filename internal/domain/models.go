// Package domain defines the persistence models and response views of the
// filmorate service. The row types are mapped with GORM for the SQLite
// backend and reused as plain values by the in-memory backend.
package domain

import "time"

// User is a registered member. Email is unique across all users and is
// compared case-sensitively.
//
// Fields:
//   - ID: store-assigned, positive, never reused.
//   - Email: unique identity of the account.
//   - Login: non-empty handle without whitespace.
//   - Name: display name; defaults to Login when blank.
//   - Birthday: calendar day, never in the future.
type User struct {
	ID        int64     `json:"id"       gorm:"primaryKey;autoIncrement"`
	Email     string    `json:"email"    gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Login     string    `json:"login"    gorm:"type:varchar(64);not null"`
	Name      string    `json:"name"     gorm:"type:varchar(255);not null"`
	Birthday  Date      `json:"birthday"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Film is a catalogue entry. RatingID and GenreIDs reference seeded
// reference rows; GenreIDs is persisted through FilmGenre rows.
type Film struct {
	ID          int64     `json:"id"          gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:varchar(200);not null;default:''"`
	ReleaseDate Date      `json:"releaseDate" gorm:"not null"`
	Duration    int       `json:"duration"    gorm:"not null;check:chk_films_duration,duration > 0"`
	RatingID    *int64    `json:"-"           gorm:"index"`
	GenreIDs    []int64   `json:"-"           gorm:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`

	// Rating is the MPA classification row. Ratings are never deleted while
	// referenced.
	Rating *Rating `json:"-" gorm:"foreignKey:RatingID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Film.
func (Film) TableName() string { return "films" }

// Genre is a reference row films may be tagged with.
type Genre struct {
	ID   int64  `json:"id"   gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(64);not null;uniqueIndex:ux_genres_name"`
}

// TableName returns the database table name for Genre.
func (Genre) TableName() string { return "genres" }

// Rating is an MPA age classification.
type Rating struct {
	ID          int64  `json:"id"          gorm:"primaryKey"`
	Name        string `json:"name"        gorm:"type:varchar(16);not null;uniqueIndex:ux_mpa_ratings_name"`
	Description string `json:"description" gorm:"type:varchar(255);not null;default:''"`
}

// TableName returns the database table name for Rating.
func (Rating) TableName() string { return "mpa_ratings" }

// Friendship is one leg of a symmetric friendship. The store always writes
// and deletes both legs (a,b) and (b,a) together.
type Friendship struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false"`
	FriendID  int64     `gorm:"primaryKey;autoIncrement:false;index:idx_friendships_friend"`
	CreatedAt time.Time

	User   User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Friend User `gorm:"foreignKey:FriendID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Friendship.
func (Friendship) TableName() string { return "friendships" }

// Like records that a user endorsed a film. The composite key makes the
// relation a set.
type Like struct {
	FilmID    int64     `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64     `gorm:"primaryKey;autoIncrement:false;index:idx_likes_user"`
	CreatedAt time.Time

	Film Film `gorm:"foreignKey:FilmID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Like.
func (Like) TableName() string { return "likes" }

// FilmGenre tags a film with a genre.
type FilmGenre struct {
	FilmID  int64 `gorm:"primaryKey;autoIncrement:false"`
	GenreID int64 `gorm:"primaryKey;autoIncrement:false;index:idx_film_genres_genre"`

	Film  Film  `gorm:"foreignKey:FilmID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Genre Genre `gorm:"foreignKey:GenreID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for FilmGenre.
func (FilmGenre) TableName() string { return "film_genres" }
