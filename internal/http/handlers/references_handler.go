// Reference data handlers: the read-only genre and MPA rating catalogues.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListGenres godoc
// @ID          listGenres
// @Summary     List genres
// @Tags        Reference
// @Produce     json
// @Success     200  {array}   domain.Genre
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /genres [get]
func (h *Handlers) ListGenres(c *gin.Context) {
	gs, err := h.refs.ListGenres(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gs)
}

// GetGenre godoc
// @ID          getGenre
// @Summary     Get a genre
// @Tags        Reference
// @Produce     json
// @Param       id  path  int  true  "Genre ID"  minimum(1)
// @Success     200  {object}  domain.Genre
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Genre not found"
// @Router      /genres/{id} [get]
func (h *Handlers) GetGenre(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	g, err := h.refs.GetGenre(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, g)
}

// ListRatings godoc
// @ID          listRatings
// @Summary     List MPA ratings
// @Tags        Reference
// @Produce     json
// @Success     200  {array}   domain.Rating
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /mpa [get]
func (h *Handlers) ListRatings(c *gin.Context) {
	rs, err := h.refs.ListRatings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, rs)
}

// GetRating godoc
// @ID          getRating
// @Summary     Get an MPA rating
// @Tags        Reference
// @Produce     json
// @Param       id  path  int  true  "Rating ID"  minimum(1)
// @Success     200  {object}  domain.Rating
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "Rating not found"
// @Router      /mpa/{id} [get]
func (h *Handlers) GetRating(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	r, err := h.refs.GetRating(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, r)
}
