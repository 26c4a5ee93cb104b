package handler

type ContextKey string

var (
	ClaimsCtxKey      ContextKey = "claims"
	UserIDCtxKey      ContextKey = "userID"
	CurrentUserCtxKey ContextKey = "currentUser"
	UserInfoCtxKey    ContextKey = "userInfo"
)
