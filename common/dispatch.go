package common

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// ActionKind enumerates actions of the identity contracts.
type ActionKind uint8

// Supported action kinds. Numeric values are used as variant tags in the
// action encoding.
const (
	ActionRegister ActionKind = iota + 1
	ActionVerify
	ActionInfo
)

// String implements fmt.Stringer.
func (x ActionKind) String() string {
	switch x {
	case ActionRegister:
		return "register"
	case ActionVerify:
		return "verify"
	case ActionInfo:
		return "info"
	default:
		return fmt.Sprintf("unknown#%d", uint8(x))
	}
}

// Action is a decoded action of the identity contract with the proof
// material of type P.
type Action[P any] struct {
	Kind ActionKind
	// Full account identifier including contract suffix.
	Account string
	// Expected nonce, ActionVerify only.
	Nonce uint32
	// Scheme-specific proof, ActionRegister and ActionVerify only.
	Proof P
}

// Scheme is a credential scheme of the identity contract. Both methods
// receive credential key of the account, i.e. account identifier without the
// contract suffix.
type Scheme[P any] interface {
	// Register checks proof of credential possession and binds the credential
	// to the new account.
	Register(st *Store, key string, proof P) error
	// Verify checks that the proof is made with the registered credential
	// for the current nonce. Well-formed proof of another credential results
	// in false without an error.
	Verify(st *Store, key string, nonce uint32, proof P) (bool, error)
}

// ActionDecoder parses action payload addressed to the contract. Call is
// provided so that proof material can include transaction context.
type ActionDecoder[P any] func(data []byte, call Call) (Action[P], error)

// Executor is a contract entry point generic over the credential scheme.
type Executor[P any] struct {
	Scheme Scheme[P]
	Decode ActionDecoder[P]
	// Optional, nop if not set.
	Logger *zap.Logger
}

// Execute applies the action addressed to the contract to the initial state.
// On error the state is not changed.
func (x Executor[P]) Execute(in ContractInput) (Result, error) {
	const op = "execute"

	log := x.Logger
	if log == nil {
		log = zap.NewNop()
	}

	st, err := DecodeStore(in.InitialState)
	if err != nil {
		return Result{}, err
	}

	if in.Index < 0 || in.Index >= len(in.Blobs) {
		return Result{}, NewError(op, ErrInvalidAction, "no blob #%d in transaction of %d blobs", in.Index, len(in.Blobs))
	}

	call := Call{
		Identity:     in.Identity,
		Contract:     in.Blobs[in.Index].Contract,
		PrivateInput: in.PrivateInput,
		Transcript:   make([]Blob, 0, len(in.Blobs)-1),
	}
	call.Transcript = append(call.Transcript, in.Blobs[:in.Index]...)
	call.Transcript = append(call.Transcript, in.Blobs[in.Index+1:]...)

	act, err := x.Decode(in.Blobs[in.Index].Data, call)
	if err != nil {
		return Result{}, err
	}

	log = log.With(zap.String("contract", call.Contract),
		zap.String("identity", call.Identity),
		zap.Stringer("action", act.Kind),
		zap.String("tx", in.TxHash))

	out, ok, err := Dispatch(x.Scheme, st, call, act)
	if err != nil {
		log.Debug("action failed", zap.Error(err))
		return Result{}, err
	}

	log.Debug("action executed", zap.Bool("success", ok), zap.Int("accounts", st.Len()))

	return Result{
		Output:  out,
		State:   EncodeStore(st),
		Success: ok,
	}, nil
}

// Dispatch applies action to the Store using the scheme. It returns the
// output message and false if verification did not match the registered
// credential.
func Dispatch[P any](s Scheme[P], st *Store, call Call, act Action[P]) (string, bool, error) {
	const op = "dispatch"

	switch act.Kind {
	case ActionRegister, ActionVerify:
		if act.Account != call.Identity {
			return "", false, NewError(op, ErrInvalidAccountFormat,
				"action account '%s' differs from transaction identity '%s'", act.Account, call.Identity)
		}

		key, err := BindAccount(call.Identity, call.Contract)
		if err != nil {
			return "", false, err
		}

		if act.Kind == ActionRegister {
			if err = s.Register(st, key, act.Proof); err != nil {
				return "", false, fmt.Errorf("register identity: %w", err)
			}
			return "Successfully registered identity for account: " + call.Identity, true, nil
		}

		ok, err := s.Verify(st, key, act.Nonce, act.Proof)
		if err != nil {
			return "", false, fmt.Errorf("verify identity: %w", err)
		}
		if !ok {
			return "Identity verification failed for account: " + call.Identity, false, nil
		}
		return "Identity verified for account: " + call.Identity, true, nil
	case ActionInfo:
		key, err := BindAccount(act.Account, call.Contract)
		if err != nil {
			return "", false, err
		}

		info, err := IdentityInfo(st, key)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Retrieved identity info for account: %s: %s", act.Account, info), true, nil
	default:
		return "", false, NewError(op, ErrInvalidAction, "unsupported action %s", act.Kind)
	}
}

// IdentityInfo returns JSON representation of the account record.
func IdentityInfo(st *Store, key string) (string, error) {
	rec, ok := st.Get(key)
	if !ok {
		return "", NewError("get identity info", ErrNotFound, "%s", key)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode identity info: %w", err)
	}

	return string(b), nil
}
