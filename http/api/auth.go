package api

// Login are the credentials for retrieving a JWT
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JWT is the JWT token pair
type JWT struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// JWTRefresh is the refreshed access token
type JWTRefresh struct {
	AccessToken string `json:"access_token"`
}

// About is general information about the running instance
type About struct {
	App     string `json:"app"`
	Name    string `json:"name"`
	Version string `json:"version"`
	State   string `json:"state"`
	Auths   bool   `json:"auth"`
}
