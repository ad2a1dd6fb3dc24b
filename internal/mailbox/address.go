// Package mailbox holds the provider-neutral snapshot model the cleanup
// engine makes decisions against: addresses, messages, threads, and
// point-in-time mailbox snapshots with derived statistics.
package mailbox

import "strings"

// Address is an email address with an optional display name.
// Matching on Address values is case-insensitive on the address part.
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// String renders the address in RFC 5322 display form.
func (a Address) String() string {
	if a.Name != "" {
		return a.Name + " <" + a.Address + ">"
	}
	return a.Address
}

// Domain returns the part after the last @, or "" for a bare local part.
func (a Address) Domain() string {
	at := strings.LastIndex(a.Address, "@")
	if at == -1 {
		return ""
	}
	return a.Address[at+1:]
}

// Equal reports whether two addresses refer to the same mailbox,
// ignoring case and display name.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(a.Address, other.Address)
}
