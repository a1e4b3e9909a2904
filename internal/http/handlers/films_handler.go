// Film HTTP handlers.
//
// This file exposes REST endpoints for films, likes and the popularity
// ranking:
//   - POST   /films                       (create, Idempotency-Key)
//   - PUT    /films                       (update)
//   - GET    /films                       (list, ETag support)
//   - GET    /films/{id}                  (get)
//   - DELETE /films/{id}                  (delete)
//   - PUT    /films/{id}/like/{userId}     (like)
//   - DELETE /films/{id}/like/{userId}    (unlike)
//   - GET    /films/popular?count=N       (top N by likes)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/http/middleware"
	"github.com/tbourn/go-filmorate-backend/internal/utils"
)

//
// DTOs
//

// RefRequest references a reference row (genre or MPA rating) by id.
type RefRequest struct {
	ID int64 `json:"id" example:"1"`
}

// FilmRequest is the JSON payload for creating or updating a film.
// ID is ignored on create and required on update. Mpa and Genres refer to
// the seeded catalogues; duplicate genre ids collapse into one.
type FilmRequest struct {
	ID          int64        `json:"id"          example:"1"`
	Name        string       `json:"name"        example:"nisi eiusmod"`
	Description string       `json:"description" example:"adipisicing"`
	ReleaseDate domain.Date  `json:"releaseDate" swaggertype:"string" format:"date" example:"1967-03-25"`
	Duration    int          `json:"duration"    example:"100"`
	Mpa         *RefRequest  `json:"mpa"`
	Genres      []RefRequest `json:"genres"`
}

func (r FilmRequest) toFilm() domain.Film {
	f := domain.Film{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ReleaseDate: r.ReleaseDate,
		Duration:    r.Duration,
	}
	if r.Mpa != nil {
		id := r.Mpa.ID
		f.RatingID = &id
	}
	if len(r.Genres) > 0 {
		f.GenreIDs = make([]int64, 0, len(r.Genres))
		for _, g := range r.Genres {
			f.GenreIDs = append(f.GenreIDs, g.ID)
		}
	}
	return f
}

//
// Handlers
//

// CreateFilm godoc
// @ID          createFilm
// @Summary     Add a film
// @Description Creates a film. With an Idempotency-Key, a retry returns the original film with 200.
// @Tags        Films
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Deduplicates retries"  example(9a41bd)
// @Param       body             body    handlers.FilmRequest  true  "Film"
//
// @Success     201  {object}  domain.FilmView
// @Success     200  {object}  domain.FilmView  "Replayed create"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown genre or rating"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /films [post]
func (h *Handlers) CreateFilm(c *gin.Context) {
	ctx := c.Request.Context()

	if id, replay := middleware.ReplayedResourceID(c); replay {
		f, err := h.films.GetFilm(ctx, id)
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, http.StatusOK, f)
		return
	}

	var req FilmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	f, err := h.films.CreateFilm(ctx, req.toFilm())
	if err != nil {
		writeError(c, err)
		return
	}
	h.remember(c, f.ID)
	ok(c, http.StatusCreated, f)
}

// UpdateFilm godoc
// @ID          updateFilm
// @Summary     Update a film
// @Description Replaces film body.id, including its rating and genre set.
// @Tags        Films
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.FilmRequest  true  "Film with id"
//
// @Success     200  {object}  domain.FilmView
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Film, genre or rating not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /films [put]
func (h *Handlers) UpdateFilm(c *gin.Context) {
	var req FilmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	f, err := h.films.UpdateFilm(c.Request.Context(), req.toFilm())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// ListFilms godoc
// @ID          listFilms
// @Summary     List films
// @Description Returns all films ascending by id. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Films
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"films-0123456789abcdef\")
//
// @Success     200  {array}   domain.FilmView
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /films [get]
func (h *Handlers) ListFilms(c *gin.Context) {
	films, err := h.films.ListFilms(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	okListing(c, "films", films)
}

// GetFilm godoc
// @ID          getFilm
// @Summary     Get a film
// @Tags        Films
// @Produce     json
//
// @Param       id  path  int  true  "Film ID"  minimum(1)
//
// @Success     200  {object}  domain.FilmView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Film not found"
// @Router      /films/{id} [get]
func (h *Handlers) GetFilm(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	f, err := h.films.GetFilm(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, f)
}

// DeleteFilm godoc
// @ID          deleteFilm
// @Summary     Delete a film
// @Description Removes the film together with its likes and genre tags.
// @Tags        Films
//
// @Param       id  path  int  true  "Film ID"  minimum(1)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Film not found"
// @Router      /films/{id} [delete]
func (h *Handlers) DeleteFilm(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	if err := h.films.DeleteFilm(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// AddLike godoc
// @ID          addLike
// @Summary     Like a film
// @Description Records that userId likes film id. Repeating the call is a no-op.
// @Tags        Likes
//
// @Param       id      path  int  true  "Film ID"  minimum(1)
// @Param       userId  path  int  true  "User ID"  minimum(1)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Film or user not found"
// @Router      /films/{id}/like/{userId} [put]
func (h *Handlers) AddLike(c *gin.Context) {
	filmID, good := pathID(c, "id")
	if !good {
		return
	}
	userID, good := pathID(c, "userId")
	if !good {
		return
	}
	if err := h.films.AddLike(c.Request.Context(), filmID, userID); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// RemoveLike godoc
// @ID          removeLike
// @Summary     Withdraw a like
// @Tags        Likes
//
// @Param       id      path  int  true  "Film ID"  minimum(1)
// @Param       userId  path  int  true  "User ID"  minimum(1)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Film, user or like not found"
// @Router      /films/{id}/like/{userId} [delete]
func (h *Handlers) RemoveLike(c *gin.Context) {
	filmID, good := pathID(c, "id")
	if !good {
		return
	}
	userID, good := pathID(c, "userId")
	if !good {
		return
	}
	if err := h.films.RemoveLike(c.Request.Context(), filmID, userID); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// PopularFilms godoc
// @ID          popularFilms
// @Summary     Most liked films
// @Description Returns up to count films by descending like count; ties go to the lower id.
// @Tags        Films
// @Produce     json
//
// @Param       count  query  int  false  "How many films"  minimum(1)  default(10)
//
// @Success     200  {array}   domain.FilmView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad count"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /films/popular [get]
func (h *Handlers) PopularFilms(c *gin.Context) {
	n, err := utils.AtoiDefault(c.Query("count"), h.popularDefault)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count must be an integer")
		return
	}
	films, err := h.films.TopFilms(c.Request.Context(), n)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, films)
}
