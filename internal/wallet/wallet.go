package wallet

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrRejected is returned by SignAndSubmit when the user declines the
// transaction in the wallet UI. It is an expected outcome, not a fault.
var ErrRejected = errors.New("transaction rejected by user")

// Account identifies the connected wallet account.
type Account struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

// SubmitResult is the wallet's acknowledgement of a submitted transaction.
type SubmitResult struct {
	Hash string `json:"hash"`
}

// Confirmation reports the on-chain outcome of a transaction.
type Confirmation struct {
	Hash    string `json:"hash"`
	Success bool   `json:"success"`
}

// Capability is the opaque wallet boundary. Signing, key management and
// transaction encoding live behind it; the engine never sees key material.
type Capability interface {
	GetAccount(ctx context.Context) (Account, error)
	SignAndSubmit(ctx context.Context, payload json.RawMessage) (SubmitResult, error)
	WaitForTransaction(ctx context.Context, hash string) (Confirmation, error)
}

// None is the capability used when no signing bridge is configured. It reports
// a disconnected account, so swap execution stops at validation.
type None struct{}

func (None) GetAccount(_ context.Context) (Account, error) {
	return Account{}, nil
}

func (None) SignAndSubmit(_ context.Context, _ json.RawMessage) (SubmitResult, error) {
	return SubmitResult{}, errors.New("no wallet configured")
}

func (None) WaitForTransaction(_ context.Context, _ string) (Confirmation, error) {
	return Confirmation{}, errors.New("no wallet configured")
}
