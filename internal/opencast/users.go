package opencast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// User describes an account to provision on the platform.
type User struct {
	Username string
	Roles    []string
}

// CreateUser provisions an account remotely. It is a no-op returning false
// when user management is disabled. A duplicate username surfaces as
// ErrConflict.
func (c *Client) CreateUser(ctx context.Context, user User) (bool, error) {
	if !c.manageUsers {
		return false, nil
	}
	if user.Username == "" {
		return false, fmt.Errorf("%w: empty username", ErrValidation)
	}

	resp, err := c.request(ctx, "POST", "/user-utils/", c.userForm(user), true)
	if err != nil {
		return false, err
	}
	if resp.status != http.StatusCreated {
		err := statusError("create user "+user.Username, resp.url, resp.status, resp.body)
		if resp.status == http.StatusConflict {
			return false, fmt.Errorf("user %q already exists: %w", user.Username, err)
		}
		return false, err
	}
	return true, nil
}

// UpdateUser replaces the roles and password of a remote account. It is a
// no-op returning false when user management is disabled. An unknown
// username surfaces as ErrNotFound.
func (c *Client) UpdateUser(ctx context.Context, user User) (bool, error) {
	if !c.manageUsers {
		return false, nil
	}
	if user.Username == "" {
		return false, fmt.Errorf("%w: empty username", ErrValidation)
	}

	resp, err := c.request(ctx, "PUT", "/user-utils/"+user.Username+".json", c.userForm(user), true)
	if err != nil {
		return false, err
	}
	if resp.status != http.StatusOK {
		err := statusError("update user "+user.Username, resp.url, resp.status, resp.body)
		if errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("user %q not found: %w", user.Username, err)
		}
		return false, err
	}
	return true, nil
}

// DeleteUser removes a remote account. It is a no-op returning false when
// user management is disabled. An unknown username surfaces as ErrNotFound.
func (c *Client) DeleteUser(ctx context.Context, username string) (bool, error) {
	if !c.manageUsers {
		return false, nil
	}
	if username == "" {
		return false, fmt.Errorf("%w: empty username", ErrValidation)
	}

	resp, err := c.request(ctx, "DELETE", "/user-utils/"+username+".json", nil, true)
	if err != nil {
		return false, err
	}
	if resp.status != http.StatusOK {
		err := statusError("delete user "+username, resp.url, resp.status, resp.body)
		if errors.Is(err, ErrNotFound) {
			return false, fmt.Errorf("user %q not found: %w", username, err)
		}
		return false, err
	}
	return true, nil
}

func (c *Client) userForm(user User) url.Values {
	roles := user.Roles
	if c.roleResolver != nil {
		roles = c.roleResolver.ReachableRoles(roles)
	}
	if roles == nil {
		roles = []string{}
	}
	encoded, err := json.Marshal(roles)
	if err != nil {
		encoded = []byte("[]")
	}

	form := url.Values{}
	form.Set("username", user.Username)
	form.Set("password", c.userPassword)
	form.Set("roles", string(encoded))
	return form
}
