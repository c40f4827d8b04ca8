package domain

// Caller is the authenticated identity a service call runs on behalf of.
type Caller struct {
	ID   string
	Role Role
}
