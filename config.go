package session

var _ Config = SimpleConfig{}

// SimpleConfig is a plain-struct Config for callers that don't have their
// own configuration layer.
type SimpleConfig struct {
	BaseURL              string `json:"base_url"`
	TokenKey             string `json:"token_key"`
	UserKey              string `json:"user_key"`
	LoginRoute           string `json:"login_route"`
	LandingRoute         string `json:"landing_route"`
	RejectedRouteKey     string `json:"rejected_route_key"`
	RejectedRouteDefault string `json:"rejected_route_default"`
	RequestTimeout       int    `json:"request_timeout"`
}

func (c SimpleConfig) GetBaseURL() string {
	return c.BaseURL
}

func (c SimpleConfig) GetTokenKey() string {
	if c.TokenKey == "" {
		return DefaultTokenKey
	}
	return c.TokenKey
}

func (c SimpleConfig) GetUserKey() string {
	if c.UserKey == "" {
		return DefaultUserKey
	}
	return c.UserKey
}

func (c SimpleConfig) GetLoginRoute() string {
	if c.LoginRoute == "" {
		return "/login"
	}
	return c.LoginRoute
}

func (c SimpleConfig) GetLandingRoute() string {
	if c.LandingRoute == "" {
		return "/"
	}
	return c.LandingRoute
}

func (c SimpleConfig) GetRejectedRouteKey() string {
	if c.RejectedRouteKey == "" {
		return "rejected_route"
	}
	return c.RejectedRouteKey
}

func (c SimpleConfig) GetRejectedRouteDefault() string {
	if c.RejectedRouteDefault == "" {
		return c.GetLandingRoute()
	}
	return c.RejectedRouteDefault
}

func (c SimpleConfig) GetRequestTimeout() int {
	return c.RequestTimeout
}
