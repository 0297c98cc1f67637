package entity

// Status values shared by users, products and memberships.
type Status string

const (
	StatusNormal    Status = "00"
	StatusCancelled Status = "99"
)

// User is the account identity, shared across products.
// Passwd holds the email-salted hash, never the plaintext.
type User struct {
	ID         int64  `json:"id"`
	UserName   string `json:"user_name"`
	Email      string `json:"email"`
	Passwd     string `json:"-"`
	Status     Status `json:"status"`
	UpdateTime int64  `json:"update_time"`
}

func (u *User) Active() bool { return u != nil && u.Status == StatusNormal }
