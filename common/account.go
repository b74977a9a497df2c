package common

import "strings"

const (
	maxContractNameLength = 64

	// MaxAccountKeyLength limits length of the credential key part of the
	// account identifier.
	MaxAccountKeyLength = 1024
)

// CheckContractName checks that name can be used as a contract name and hence
// as an account suffix: 1-64 characters of lowercase letters, digits, '-' and
// '_' starting with a letter or a digit.
func CheckContractName(name string) bool {
	if len(name) == 0 || len(name) > maxContractNameLength {
		return false
	}
	if !isAlNum(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if name[i] != '-' && name[i] != '_' && !isAlNum(name[i]) {
			return false
		}
	}
	return true
}

func isAlNum(c uint8) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// BindAccount checks that account belongs to the named contract, i.e. has
// '.<contract>' suffix, and returns the remaining credential key.
func BindAccount(account, contract string) (string, error) {
	const op = "bind account"

	if !CheckContractName(contract) {
		return "", NewError(op, ErrInvalidAccountFormat, "invalid contract name '%s'", contract)
	}

	key, ok := strings.CutSuffix(account, "."+contract)
	if !ok || key == "" {
		return "", NewError(op, ErrInvalidAccountFormat, "'.%s' expected in '%s'", contract, account)
	}

	if len(key) > MaxAccountKeyLength {
		return "", NewError(op, ErrInvalidAccountFormat, "account key is longer than %d", MaxAccountKeyLength)
	}

	return key, nil
}

// AccountID composes account identifier from the credential key and the
// contract name. It is the inverse of BindAccount.
func AccountID(key, contract string) string {
	return key + "." + contract
}
