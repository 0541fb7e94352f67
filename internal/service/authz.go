package service

import "context"

// AllowAll is a PermissionChecker that grants every actor. Deployments
// wire the real site/provider directory check in its place; the core
// only consumes the interface.
type AllowAll struct{}

func (AllowAll) CanManage(ctx context.Context, actorID, auditID int64) (bool, error) {
	return true, nil
}

var _ PermissionChecker = AllowAll{}
