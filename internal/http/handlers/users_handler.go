// User HTTP handlers.
//
// This file exposes REST endpoints for users and their friendships:
//   - POST   /users                                 (create, Idempotency-Key)
//   - PUT    /users                                 (update)
//   - GET    /users                                 (list, ETag support)
//   - GET    /users/{id}                            (get)
//   - DELETE /users/{id}                            (delete)
//   - PUT    /users/{id}/friends/{friendId}         (befriend)
//   - DELETE /users/{id}/friends/{friendId}         (unfriend)
//   - GET    /users/{id}/friends                    (friends)
//   - GET    /users/{id}/friends/common/{otherId}   (mutual friends)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/http/middleware"
)

//
// DTOs
//

// UserRequest is the JSON payload for creating or updating a user.
// ID is ignored on create and required on update.
type UserRequest struct {
	ID       int64       `json:"id"       example:"1"`
	Email    string      `json:"email"    example:"mail@mail.ru"`
	Login    string      `json:"login"    example:"dolore"`
	Name     string      `json:"name"     example:"Nick Name"`
	Birthday domain.Date `json:"birthday" swaggertype:"string" format:"date" example:"1946-08-20"`
}

func (r UserRequest) toUser() domain.User {
	return domain.User{
		ID:       r.ID,
		Email:    r.Email,
		Login:    r.Login,
		Name:     r.Name,
		Birthday: r.Birthday,
	}
}

//
// Handlers
//

// CreateUser godoc
// @ID          createUser
// @Summary     Register a user
// @Description Creates a user. A blank name defaults to the login. With an Idempotency-Key, a retry returns the original user with 200.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Deduplicates retries"  example(7c2f1e)
// @Param       body             body    handlers.UserRequest  true  "User"
//
// @Success     201  {object}  domain.UserView
// @Success     200  {object}  domain.UserView  "Replayed create"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already in use"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	if id, replay := middleware.ReplayedResourceID(c); replay {
		u, err := h.users.GetUser(ctx, id)
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, http.StatusOK, u)
		return
	}

	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.CreateUser(ctx, req.toUser())
	if err != nil {
		writeError(c, err)
		return
	}
	h.remember(c, u.ID)
	ok(c, http.StatusCreated, u)
}

// UpdateUser godoc
// @ID          updateUser
// @Summary     Update a user
// @Description Merges the payload into user body.id: blank fields keep their value, a blank name falls back to the login.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.UserRequest  true  "User with id"
//
// @Success     200  {object}  domain.UserView
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already in use"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [put]
func (h *Handlers) UpdateUser(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.users.UpdateUser(c.Request.Context(), req.toUser())
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List users
// @Description Returns all users ascending by id. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Users
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"users-0123456789abcdef\")
//
// @Success     200  {array}   domain.UserView
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	okListing(c, "users", users)
}

// GetUser godoc
// @ID          getUser
// @Summary     Get a user
// @Tags        Users
// @Produce     json
//
// @Param       id  path  int  true  "User ID"  minimum(1)
//
// @Success     200  {object}  domain.UserView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	u, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, u)
}

// DeleteUser godoc
// @ID          deleteUser
// @Summary     Delete a user
// @Description Removes the user together with their friendships and likes.
// @Tags        Users
//
// @Param       id  path  int  true  "User ID"  minimum(1)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id} [delete]
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// AddFriend godoc
// @ID          addFriend
// @Summary     Befriend a user
// @Description Makes id and friendId mutual friends. Repeating the call is a no-op.
// @Tags        Friends
//
// @Param       id        path  int  true  "User ID"    minimum(1)
// @Param       friendId  path  int  true  "Friend ID"  minimum(1)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id or self-friendship"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id}/friends/{friendId} [put]
func (h *Handlers) AddFriend(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	friendID, good := pathID(c, "friendId")
	if !good {
		return
	}
	if err := h.users.AddFriend(c.Request.Context(), id, friendID); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// RemoveFriend godoc
// @ID          removeFriend
// @Summary     Unfriend a user
// @Description Ends the friendship in both directions. Succeeds when they were not friends.
// @Tags        Friends
//
// @Param       id        path  int  true  "User ID"    minimum(1)
// @Param       friendId  path  int  true  "Friend ID"  minimum(1)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id}/friends/{friendId} [delete]
func (h *Handlers) RemoveFriend(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	friendID, good := pathID(c, "friendId")
	if !good {
		return
	}
	if err := h.users.RemoveFriend(c.Request.Context(), id, friendID); err != nil {
		writeError(c, err)
		return
	}
	noContent(c)
}

// ListFriends godoc
// @ID          listFriends
// @Summary     List friends
// @Tags        Friends
// @Produce     json
//
// @Param       id  path  int  true  "User ID"  minimum(1)
//
// @Success     200  {array}   domain.UserView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id}/friends [get]
func (h *Handlers) ListFriends(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	friends, err := h.users.ListFriends(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, friends)
}

// CommonFriends godoc
// @ID          commonFriends
// @Summary     List mutual friends
// @Tags        Friends
// @Produce     json
//
// @Param       id       path  int  true  "User ID"        minimum(1)
// @Param       otherId  path  int  true  "Other user ID"  minimum(1)
//
// @Success     200  {array}   domain.UserView
// @Failure     400  {object}  handlers.ErrorResponse  "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse  "User not found"
// @Router      /users/{id}/friends/common/{otherId} [get]
func (h *Handlers) CommonFriends(c *gin.Context) {
	id, good := pathID(c, "id")
	if !good {
		return
	}
	otherID, good := pathID(c, "otherId")
	if !good {
		return
	}
	common, err := h.users.CommonFriends(c.Request.Context(), id, otherID)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, http.StatusOK, common)
}
