package utils

import (
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// CurrentUserID returns the authenticated user's identifier. The messaging
// core takes identity explicitly on every call; this is the single place
// handlers resolve it from the access token.
func CurrentUserID(ctx iris.Context) string {
	claims, ok := jwt.Get(ctx).(*AccessToken)
	if !ok {
		return ""
	}
	return claims.ID
}
