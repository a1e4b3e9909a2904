package services

import (
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/sysutil"
)

// MaxDescriptionRunes caps a film description, counted after NFC
// normalization.
const MaxDescriptionRunes = 200

// EarliestReleaseDate is the first public film screening (Lumière,
// 28 December 1895). No film may be released before it.
var EarliestReleaseDate = domain.NewDate(1895, time.December, 28)

// prepareUser normalizes u in place and checks the user rules against today.
// A blank name becomes the login.
func prepareUser(u *domain.User, today domain.Date) error {
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		return invalid("email", "must not be blank")
	}
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		return invalid("email", "is not a valid address")
	}

	if u.Login == "" {
		return invalid("login", "must not be blank")
	}
	if strings.IndexFunc(u.Login, unicode.IsSpace) >= 0 {
		return invalid("login", "must not contain whitespace")
	}

	u.Name = sysutil.FirstNonEmpty(strings.TrimSpace(norm.NFC.String(u.Name)), u.Login)

	if !u.Birthday.IsZero() && u.Birthday.After(today) {
		return invalid("birthday", "must not be in the future")
	}
	return nil
}

// prepareFilm normalizes f in place and checks the film rules.
func prepareFilm(f *domain.Film) error {
	f.Name = strings.TrimSpace(norm.NFC.String(f.Name))
	if f.Name == "" {
		return invalid("name", "must not be blank")
	}

	f.Description = norm.NFC.String(f.Description)
	if utf8.RuneCountInString(f.Description) > MaxDescriptionRunes {
		return invalid("description", "must be at most 200 characters")
	}

	if f.ReleaseDate.IsZero() {
		return invalid("releaseDate", "is required")
	}
	if f.ReleaseDate.Before(EarliestReleaseDate) {
		return invalid("releaseDate", "must not precede 1895-12-28")
	}

	if f.Duration <= 0 {
		return invalid("duration", "must be positive")
	}
	return nil
}

// mergeUser applies the non-blank fields of patch onto cur, the way a
// partial PUT /users is interpreted. A blank name resets to the login.
func mergeUser(cur domain.User, patch domain.User) domain.User {
	if strings.TrimSpace(patch.Email) != "" {
		cur.Email = patch.Email
	}
	if strings.TrimSpace(patch.Login) != "" {
		cur.Login = patch.Login
	}
	cur.Name = patch.Name
	if !patch.Birthday.IsZero() {
		cur.Birthday = patch.Birthday
	}
	return cur
}
