package session

// Persisted keys. They are written and deleted in this order.
const (
	KeyUser      = "auth.user"
	KeySession   = "auth.session"
	KeyIsNewUser = "auth.isNewUser"
)

var persistedKeys = [...]string{KeyUser, KeySession, KeyIsNewUser}
