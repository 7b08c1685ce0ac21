package model

// User represents a row in the `users` table.  Username is nullable
// because the create endpoint accepts a body without one.
//
// Fields:
//  ID       – primary key identifier of the user.
//  Username – display name; duplicates are allowed.
type User struct {
    ID       int64   `json:"id"`       // users.id
    Username *string `json:"username"` // users.username (nullable)
}
