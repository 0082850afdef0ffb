package consigne

import (
	"context"
	"fmt"

	"github.com/roach88/consigne/internal/queryir"
	"github.com/roach88/consigne/internal/store"
)

// Role is the side a user takes in a deposit.
type Role string

const (
	RoleProvider Role = "provider"
	RoleReceiver Role = "receiver"
)

func (r Role) activityColumn() (string, error) {
	switch r {
	case RoleProvider, RoleReceiver:
		return "last_" + string(r) + "_activity", nil
	}
	return "", fmt.Errorf("unknown role %q", r)
}

// AddUser registers a user and returns its record. Adding a code that
// already exists returns the existing user.
func (d *Database) AddUser(ctx context.Context, partnerID, code int64, name string) (store.Record, error) {
	var user store.Record
	err := d.exec(ctx, func(s *store.Session) error {
		res, err := s.InsertOne(ctx, queryir.Request{
			Table:      "users",
			Fields:     []string{"user_partner_id", "user_code", "user_name"},
			Values:     []any{partnerID, code, name},
			Returning:  []string{"user_id"},
			OnConflict: queryir.ConflictIgnore,
		}, false)
		if err != nil {
			return err
		}
		if len(res.Records) == 0 {
			d.logger.Debug("user already registered", "user_code", code)
		}

		rec, found, err := s.ReadOne(ctx, userByCode(code))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("add user %d: %w", code, ErrNotFound)
		}
		user = rec
		return nil
	})
	return user, err
}

// GetUserFromCode looks a user up by badge code.
func (d *Database) GetUserFromCode(ctx context.Context, code int64) (store.Record, bool, error) {
	return d.readOne(ctx, userByCode(code))
}

// UpdateActivity stamps the user's last activity for role with the current time.
func (d *Database) UpdateActivity(ctx context.Context, userID int64, role Role) error {
	column, err := role.activityColumn()
	if err != nil {
		return err
	}
	return d.exec(ctx, func(s *store.Session) error {
		res, err := s.Update(ctx, queryir.Request{
			Table:      "users",
			Setters:    []queryir.Setter{queryir.Set(column, d.clock.Now())},
			Conditions: []queryir.Condition{queryir.Where("user_id", queryir.OpEq, userID)},
		}, false)
		if err != nil {
			return err
		}
		return mustAffect(res, fmt.Sprintf("update activity of user %d", userID))
	})
}

func userByCode(code int64) queryir.Request {
	return queryir.Request{
		Table:      "users",
		Fields:     []string{"user_id", "user_partner_id", "user_code", "user_name", "last_provider_activity", "last_receiver_activity"},
		Conditions: []queryir.Condition{queryir.Where("user_code", queryir.OpEq, code)},
	}
}
