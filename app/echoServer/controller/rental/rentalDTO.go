package rental

// LookupQuery selects the most recent rental of a customer/movie pair.
type LookupQuery struct {
	CustomerID string `query:"customerId" json:"customerId" validate:"required,uuid"`
	MovieID    string `query:"movieId" json:"movieId" validate:"required,uuid"`
}
