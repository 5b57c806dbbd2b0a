package domain

// Domain separates the two identity domains served by the API.
type Domain string

const (
	DomainUser  Domain = "user"
	DomainAdmin Domain = "admin"
)
