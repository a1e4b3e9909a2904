// Package services – UserService
//
// This file implements UserService, which owns the user lifecycle and the
// symmetric friendship graph. It validates and normalizes user input,
// enforces the no-self-friendship rule, and delegates atomic two-leg
// friendship writes to the injected storage.Store. Results are returned as
// assembled domain.UserView values.
//
// Observability: all public methods are OpenTelemetry-instrumented; friendship
// mutations are counted in Prometheus and logged at debug level through the
// request-scoped zerolog logger.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-filmorate-backend/internal/domain"
	"github.com/tbourn/go-filmorate-backend/internal/storage"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// UserService coordinates user persistence and friendship management.
type UserService struct {
	Store    storage.Store
	Assemble *Assembler

	// Now returns the current time; birthdays are checked against its date.
	// Defaults to time.Now.
	Now func() time.Time
}

// NewUserService constructs a UserService over store.
func NewUserService(store storage.Store) *UserService {
	return &UserService{
		Store:    store,
		Assemble: &Assembler{Store: store},
		Now:      time.Now,
	}
}

func (s *UserService) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("services/UserService").Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *UserService) today() domain.Date {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return domain.DateOf(now().UTC())
}

// CreateUser validates u and stores it with a fresh id.
func (s *UserService) CreateUser(ctx context.Context, u domain.User) (*domain.UserView, error) {
	ctx, span := s.span(ctx, "CreateUser")
	defer span.End()

	if err := prepareUser(&u, s.today()); err != nil {
		return nil, err
	}
	created, err := s.Store.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", created.ID))
	return s.Assemble.User(ctx, *created)
}

// UpdateUser applies the non-blank fields of u to the stored user u.ID.
// Email uniqueness is only re-checked when the email changes.
func (s *UserService) UpdateUser(ctx context.Context, u domain.User) (*domain.UserView, error) {
	ctx, span := s.span(ctx, "UpdateUser", attribute.Int64("user.id", u.ID))
	defer span.End()

	if u.ID <= 0 {
		return nil, invalid("id", "must be positive")
	}
	cur, err := s.Store.GetUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	merged := mergeUser(*cur, u)
	if err := prepareUser(&merged, s.today()); err != nil {
		return nil, err
	}
	updated, err := s.Store.UpdateUser(ctx, merged)
	if err != nil {
		return nil, err
	}
	return s.Assemble.User(ctx, *updated)
}

// GetUser returns the assembled user or ErrUserNotFound.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.UserView, error) {
	ctx, span := s.span(ctx, "GetUser", attribute.Int64("user.id", id))
	defer span.End()

	u, err := s.Store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Assemble.User(ctx, *u)
}

// ListUsers returns every user ascending by id.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	ctx, span := s.span(ctx, "ListUsers")
	defer span.End()

	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("users.count", len(users)))
	return s.Assemble.Users(ctx, users)
}

// DeleteUser removes the user with its friendships and likes.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	ctx, span := s.span(ctx, "DeleteUser", attribute.Int64("user.id", id))
	defer span.End()

	if err := s.Store.DeleteUser(ctx, id); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Debug().Int64("user_id", id).Msg("user deleted")
	return nil
}

// AddFriend makes id and friendID friends of each other. Adding an existing
// friendship is a no-op; befriending oneself is a validation error.
func (s *UserService) AddFriend(ctx context.Context, id, friendID int64) error {
	ctx, span := s.span(ctx, "AddFriend",
		attribute.Int64("user.id", id),
		attribute.Int64("friend.id", friendID),
	)
	defer span.End()

	if id == friendID {
		return invalid("friendId", "must differ from the user id")
	}
	if err := s.Store.AddFriend(ctx, id, friendID); err != nil {
		return err
	}
	relationMutations.WithLabelValues("friendship", "add").Inc()
	zerolog.Ctx(ctx).Debug().Int64("user_id", id).Int64("friend_id", friendID).Msg("friendship added")
	return nil
}

// RemoveFriend drops the friendship between id and friendID. Removing a
// friendship that does not exist succeeds; missing users do not.
func (s *UserService) RemoveFriend(ctx context.Context, id, friendID int64) error {
	ctx, span := s.span(ctx, "RemoveFriend",
		attribute.Int64("user.id", id),
		attribute.Int64("friend.id", friendID),
	)
	defer span.End()

	if err := s.Store.RemoveFriend(ctx, id, friendID); err != nil {
		return err
	}
	relationMutations.WithLabelValues("friendship", "remove").Inc()
	zerolog.Ctx(ctx).Debug().Int64("user_id", id).Int64("friend_id", friendID).Msg("friendship removed")
	return nil
}

// ListFriends returns the friends of id as users, ascending by id.
func (s *UserService) ListFriends(ctx context.Context, id int64) ([]domain.UserView, error) {
	ctx, span := s.span(ctx, "ListFriends", attribute.Int64("user.id", id))
	defer span.End()

	if _, err := s.Store.GetUser(ctx, id); err != nil {
		return nil, err
	}
	friends, err := s.Store.FriendIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	users, err := s.Store.GetUsers(ctx, friends[id])
	if err != nil {
		return nil, err
	}
	return s.Assemble.Users(ctx, users)
}

// CommonFriends returns the users befriended by both id and otherID,
// ascending by id. Neither id nor otherID is ever part of the result, so
// CommonFriends(a, a) is empty.
func (s *UserService) CommonFriends(ctx context.Context, id, otherID int64) ([]domain.UserView, error) {
	ctx, span := s.span(ctx, "CommonFriends",
		attribute.Int64("user.id", id),
		attribute.Int64("other.id", otherID),
	)
	defer span.End()

	for _, uid := range []int64{id, otherID} {
		if _, err := s.Store.GetUser(ctx, uid); err != nil {
			return nil, err
		}
	}
	if id == otherID {
		return []domain.UserView{}, nil
	}
	common, err := s.Store.CommonFriendIDs(ctx, id, otherID)
	if err != nil {
		return nil, err
	}
	users, err := s.Store.GetUsers(ctx, common)
	if err != nil {
		return nil, err
	}
	return s.Assemble.Users(ctx, users)
}
