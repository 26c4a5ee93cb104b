package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/account-service/backend/internal/domain"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(CurrentUserCtxKey).(*domain.User)
	h.successResponse(w, r, http.StatusOK, "获取个人信息成功", myInfo)
}
