package domain

import "errors"

// ErrBadOrigin is returned when an operation is invoked with the wrong
// capability. Services translate it into a forbidden domain error before it
// reaches transport.
var ErrBadOrigin = errors.New("bad origin")

type originKind uint8

const (
	originNone originKind = iota
	originSigned
	originPrivileged
	originSystem
)

// Origin states on whose authority an operation runs. It is a closed set:
// a call is signed by an account, carries privileged authority, or comes
// from the runtime itself. Operations state which kinds they accept and
// reject the rest up front, before touching any state.
type Origin struct {
	kind    originKind
	account AccountID
}

// SignedOrigin is a call authorized by the holder of account's key.
func SignedOrigin(account AccountID) Origin {
	return Origin{kind: originSigned, account: account}
}

// PrivilegedOrigin is a call carrying governance authority.
func PrivilegedOrigin() Origin {
	return Origin{kind: originPrivileged}
}

// SystemOrigin is a call issued by the runtime itself (workers, hooks).
// Transport layers never construct it.
func SystemOrigin() Origin {
	return Origin{kind: originSystem}
}

// IsZero returns true for the absent origin.
func (o Origin) IsZero() bool {
	return o.kind == originNone
}

func (o Origin) String() string {
	switch o.kind {
	case originSigned:
		return "signed(" + o.account.String() + ")"
	case originPrivileged:
		return "privileged"
	case originSystem:
		return "system"
	default:
		return "none"
	}
}

// EnsureSigned returns the signing account, or ErrBadOrigin for any other
// origin kind. Privileged and system origins do not act as an account.
func EnsureSigned(o Origin) (AccountID, error) {
	if o.kind != originSigned {
		return "", ErrBadOrigin
	}
	return o.account, nil
}

// EnsurePrivileged returns ErrBadOrigin unless o carries governance
// authority. Signed origins never pass, regardless of which account signed.
func EnsurePrivileged(o Origin) error {
	if o.kind != originPrivileged {
		return ErrBadOrigin
	}
	return nil
}
