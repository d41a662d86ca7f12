package service

import (
	"errors"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
)

// authorize checks caps once per operation for a record owned by ownerID.
func authorize(actor domain.Actor, caps domain.Capability, ownerID int64, action string) error {
	if !actor.Can(caps, ownerID) {
		return customError.WrapForbidden(action)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrConflict)
}
