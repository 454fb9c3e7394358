package reconcile

import (
	"errors"

	"github.com/dmitrijs2005/attendkeeper/internal/remote"
)

var (
	ErrConfigIncomplete = errors.New("school and teacher name must be set before syncing")
	ErrSyncDisabled     = errors.New("cloud sync is not configured")
)

// Kind classifies why a pass failed.
type Kind int

const (
	KindNone Kind = iota
	KindPermissionDenied
	KindServiceUnavailable
	KindUnauthenticated
	KindConfigIncomplete
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindPermissionDenied:
		return "permission_denied"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindConfigIncomplete:
		return "config_incomplete"
	default:
		return "unknown"
	}
}

// Retryable kinds clear up on their own; the rest need someone to fix
// configuration or credentials.
func (k Kind) Retryable() bool {
	return k == KindServiceUnavailable || k == KindUnknown
}

// Classify maps an error returned by a pass to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, remote.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, remote.ErrUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, remote.ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrConfigIncomplete):
		return KindConfigIncomplete
	default:
		return KindUnknown
	}
}

// Message is the status line a front-end shows for a failed pass.
func (k Kind) Message() string {
	switch k {
	case KindPermissionDenied:
		return "Permission denied - check the remote store's access rules"
	case KindServiceUnavailable:
		return "Cloud service unavailable - will retry"
	case KindUnauthenticated:
		return "Authentication required for cloud sync"
	case KindConfigIncomplete:
		return "Please configure school and teacher name in settings"
	case KindUnknown:
		return "Sync failed - will retry when connection improves"
	default:
		return ""
	}
}
