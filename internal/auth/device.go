package auth

// DeviceCodeSession is the state of one device authorization: the codes GitHub
// issued and the polling interval it currently asks for. The poll loop owns it
// and replaces it wholesale when the device code expires.
type DeviceCodeSession struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int // seconds until the device code expires
	Interval        int // minimum polling interval in seconds
}

// accessTokenResponse is one answer of the access token endpoint.
// Exactly one of AccessToken or Error is normally set.
type accessTokenResponse struct {
	AccessToken      string `json:"access_token"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Interval         int    `json:"interval"`

	payload map[string]any
}
