package common

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// Blob is an opaque payload of the transaction addressed to the named
// contract.
type Blob struct {
	Contract string `json:"contract_name"`
	Data     []byte `json:"data"`
}

// ContractInput is everything a contract execution depends on.
type ContractInput struct {
	// State digest the action is applied to.
	InitialState []byte
	// Account submitting the transaction.
	Identity string
	// Hash of the carrier transaction. Informational only.
	TxHash string
	// Data supplied to the prover only, e.g. identity token.
	PrivateInput []byte
	// All blobs of the transaction.
	Blobs []Blob
	// Index of the blob addressed to the executed contract.
	Index int
}

// Result is an outcome of the successfully executed action.
type Result struct {
	// Human-readable description of the outcome.
	Output string
	// State digest after the action.
	State []byte
	// False if a well-formed proof did not match the registered credential.
	// The action is still considered executed in this case.
	Success bool
}

// Call describes the context of a single action execution.
type Call struct {
	// Account submitting the transaction.
	Identity string
	// Name of the executed contract.
	Contract string
	// Other blobs of the same transaction in transaction order.
	Transcript []Blob
	// Data supplied to the prover only.
	PrivateInput []byte
}

// VerificationMessage returns the message binding verification with the
// given nonce to the other blobs of the transaction:
//
//	verify <nonce>[ <contract> <hex data>]...
//
// Fields are separated by single spaces, blob data is lowercase hex, blobs
// follow in transaction order. Empty data is an empty field, so the message
// ends with a space if the last blob carries no data.
func (x Call) VerificationMessage(nonce uint32) []byte {
	var sb strings.Builder

	sb.WriteString("verify ")
	sb.WriteString(strconv.FormatUint(uint64(nonce), 10))

	for i := range x.Transcript {
		sb.WriteByte(' ')
		sb.WriteString(x.Transcript[i].Contract)
		sb.WriteByte(' ')
		sb.WriteString(hex.EncodeToString(x.Transcript[i].Data))
	}

	return []byte(sb.String())
}

// RegistrationMessage returns the registration challenge of the application:
// "<app> Registration", or just "Registration" for an empty name.
func RegistrationMessage(app string) []byte {
	if app == "" {
		return []byte("Registration")
	}
	return []byte(app + " Registration")
}
