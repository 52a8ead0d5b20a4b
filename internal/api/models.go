package api

// Credentials is the four-value set a fresh login requires.
type Credentials struct {
	Email    string
	Password string
	KeyID    string
	APIKey   string
}

// TokenPair is the access/refresh pair a successful login yields.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Device is one entry of the remote device list. Nickname may be empty;
// callers derive a placeholder from the MAC when it is.
type Device struct {
	MAC      string `json:"mac"`
	Model    string `json:"model"`
	Product  string `json:"product_type"`
	Nickname string `json:"nickname"`
}

// DeviceState is the reported state of a single device. Color and
// Brightness are meaningful only while the device is on; Color may still
// be empty for devices that never had one set.
type DeviceState struct {
	IsOn       bool   `json:"is_on"`
	Color      string `json:"color"`
	Brightness int    `json:"brightness"`
}
