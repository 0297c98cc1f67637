package entity

// Product is a tenant a user can join. Seeded out of band.
type Product struct {
	ID          int64  `json:"id"`
	Code        string `json:"product"`
	Description string `json:"desc"`
	Status      Status `json:"status"`
	UpdateTime  int64  `json:"update_time"`
}

// Membership links a user to a product and carries the product-scoped profile.
type Membership struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	ProductID  int64  `json:"product_id"`
	Avatar     string `json:"avatar"`
	Status     Status `json:"status"`
	UpdateTime int64  `json:"update_time"`
}
