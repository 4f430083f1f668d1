package dto

import "fmt"

// AuthAction selects the operation of the combined auth endpoint
type AuthAction int

const (
	AuthActionRegister AuthAction = iota + 1
	AuthActionLogin
)

// ParseAuthAction maps the wire value to an AuthAction
func ParseAuthAction(s string) (AuthAction, error) {
	switch s {
	case "register":
		return AuthActionRegister, nil
	case "login":
		return AuthActionLogin, nil
	}
	return 0, fmt.Errorf("unknown auth action %q", s)
}

func (a AuthAction) String() string {
	switch a {
	case AuthActionRegister:
		return "register"
	case AuthActionLogin:
		return "login"
	}
	return "unknown"
}

// ResetAction selects the step of the combined password reset endpoint
type ResetAction int

const (
	ResetActionStart ResetAction = iota + 1
	ResetActionVerify
)

// ParseResetAction maps the wire value to a ResetAction
func ParseResetAction(s string) (ResetAction, error) {
	switch s {
	case "request":
		return ResetActionStart, nil
	case "verify", "reset":
		return ResetActionVerify, nil
	}
	return 0, fmt.Errorf("unknown password reset action %q", s)
}

func (a ResetAction) String() string {
	switch a {
	case ResetActionStart:
		return "request"
	case ResetActionVerify:
		return "verify"
	}
	return "unknown"
}
