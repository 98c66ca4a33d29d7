package usecase

const (
	// MaxSessionList caps one page of the session listing endpoint.
	MaxSessionList = 100

	// DefaultSessionList is the page size when the caller does not ask
	// for one.
	DefaultSessionList = 20
)

// ClampPagination normalizes limit/offset from the transport layer.
func ClampPagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultSessionList
	}

	if limit > MaxSessionList {
		limit = MaxSessionList
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
