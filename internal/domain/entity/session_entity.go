package entity

// Session is a persisted credential for a (user, product) pair.
type Session struct {
	ID        int64  `json:"-"`
	Token     string `json:"token"`
	UserID    int64  `json:"-"`
	ProductID int64  `json:"-"`
	Expire    int64  `json:"expire"`
	// Refreshed reports that the last read slid Expire forward.
	Refreshed bool `json:"-"`
}

// SigninResult is everything a successful sign-in produces.
type SigninResult struct {
	User       User
	Product    Product
	Membership Membership
	Session    Session
}

// AuthContext is the resolved caller of an authorized request.
type AuthContext struct {
	User       User
	Product    Product
	Membership Membership
	Token      string
	Expire     int64

	// NewToken is set when a replacement credential was issued inside the refresh window.
	NewToken  string
	NewExpire int64
}
