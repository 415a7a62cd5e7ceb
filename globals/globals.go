package globals

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"

// Roles
const (
	RoleCustomer = "customer"
	RoleRetailer = "retailer"
	RoleAdmin    = "admin"
)
