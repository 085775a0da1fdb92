// Package provision mirrors local account lifecycle events onto the remote
// platform. Provisioning is advisory: account trouble on the remote side is
// logged and never blocks the local operation that triggered it.
package provision

import (
	"context"
	"log/slog"
	"strings"

	"castsync/internal/logging"
	"castsync/internal/opencast"
)

// Service pushes account create, update, and delete events to the platform.
type Service struct {
	client *opencast.Client
	logger *slog.Logger
}

// New creates a provisioning service.
func New(client *opencast.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// UserCreated provisions the remote counterpart of a new local account. It
// reports whether an account was created remotely.
func (s *Service) UserCreated(ctx context.Context, user opencast.User) bool {
	created, err := s.client.CreateUser(ctx, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "remote account creation failed",
			slog.String(logging.FieldComponent, "provision"),
			slog.String("username", user.Username),
			slog.String("error", err.Error()))
		return false
	}
	if created {
		s.logger.InfoContext(ctx, "remote account created",
			slog.String(logging.FieldComponent, "provision"),
			slog.String("username", user.Username))
	}
	return created
}

// UserUpdated pushes role and password changes of a local account. It
// reports whether the remote account was updated.
func (s *Service) UserUpdated(ctx context.Context, user opencast.User) bool {
	updated, err := s.client.UpdateUser(ctx, user)
	if err != nil {
		s.logger.ErrorContext(ctx, "remote account update failed",
			slog.String(logging.FieldComponent, "provision"),
			slog.String("username", user.Username),
			slog.String("error", err.Error()))
		return false
	}
	return updated
}

// UserDeleted removes the remote counterpart of a deleted local account. It
// reports whether a remote account was removed.
func (s *Service) UserDeleted(ctx context.Context, username string) bool {
	deleted, err := s.client.DeleteUser(ctx, username)
	if err != nil {
		s.logger.ErrorContext(ctx, "remote account deletion failed",
			slog.String(logging.FieldComponent, "provision"),
			slog.String("username", username),
			slog.String("error", err.Error()))
		return false
	}
	return deleted
}

// RoleHierarchy resolves reachable roles from a static parent-to-children
// role map, the shape role hierarchies are usually configured in.
type RoleHierarchy struct {
	children map[string][]string
}

// NewRoleHierarchy builds a resolver from a parent-to-children map. Role
// names are normalized to upper case.
func NewRoleHierarchy(hierarchy map[string][]string) *RoleHierarchy {
	children := make(map[string][]string, len(hierarchy))
	for parent, reachable := range hierarchy {
		normalized := make([]string, 0, len(reachable))
		for _, role := range reachable {
			if role = normalizeRole(role); role != "" {
				normalized = append(normalized, role)
			}
		}
		children[normalizeRole(parent)] = normalized
	}
	return &RoleHierarchy{children: children}
}

// ReachableRoles expands the given roles into every role reachable through
// the hierarchy, including the inputs themselves, without duplicates.
func (h *RoleHierarchy) ReachableRoles(roles []string) []string {
	seen := map[string]struct{}{}
	var reachable []string

	var visit func(role string)
	visit = func(role string) {
		role = normalizeRole(role)
		if role == "" {
			return
		}
		if _, ok := seen[role]; ok {
			return
		}
		seen[role] = struct{}{}
		reachable = append(reachable, role)
		for _, child := range h.children[role] {
			visit(child)
		}
	}

	for _, role := range roles {
		visit(role)
	}
	return reachable
}

func normalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
