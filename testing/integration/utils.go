package integration

import (
	"net/http"
)

const authHeader = "X-Auth-Token"

// AddAuth sets the auth token header on the request
func AddAuth(req *http.Request, token string) *http.Request {
	req.Header.Set(authHeader, token)
	return req
}
