package handler

import (
	"net/http"

	"github.com/segyhp/circulation-engine/pkg/response"
)

type UserHandler struct {
	service UserService
}

func NewUserHandler(service UserService) *UserHandler {
	return &UserHandler{service: service}
}

// DeleteUser handles DELETE /users/{userId}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	userID, err := pathInt64(r, "userId")
	if err != nil {
		response.FromError(w, err)
		return
	}

	if err := h.service.DeleteBorrower(r.Context(), actor, userID); err != nil {
		response.FromError(w, err)
		return
	}

	response.Success(w, map[string]int64{"deleted": userID})
}
