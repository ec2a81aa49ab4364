package shared

// RootUsername is the reserved username of the organisation admin created at bootstrap.
const RootUsername = "admin"

// RootIdentity marks the single user allowed to reassign roles and remove users.
// It is resolved once at bootstrap and compared by user id afterwards.
type RootIdentity struct {
	userID int64
}

// NewRootIdentity pins the root identity to a user id.
func NewRootIdentity(userID int64) RootIdentity {
	return RootIdentity{userID: userID}
}

// UserID returns the pinned user id, zero when unresolved.
func (r RootIdentity) UserID() int64 {
	return r.userID
}

// Is reports whether userID is the root identity. An unresolved identity matches nobody.
func (r RootIdentity) Is(userID int64) bool {
	return r.userID != 0 && r.userID == userID
}
