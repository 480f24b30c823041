package httpserver

const (
	ErrInvalidJSON = "invalid json"
	ErrMissingID   = "missing id"
	ErrMissingUser = "missing user"
	ErrDependency  = "dependency error"
	ErrNotFound    = "not found"
	ErrNotDraft    = "campaign is not in draft status"
)
