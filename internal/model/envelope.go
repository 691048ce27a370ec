// Package model defines the core types for envelope budget reconciliation.
package model

import (
	"fmt"
	"strings"

	"envelopes/internal/common"
)

const (
	// EnvelopeSeparator delimits the segments of a nested envelope path.
	EnvelopeSeparator = ":"
	// TransferArrow joins source and destination in a transfer envelope string.
	TransferArrow = "->"
	// RootEnvelope is the empty path representing the total across all envelopes.
	RootEnvelope = ""
	// UnassignedEnvelope marks transactions with no resolvable envelope.
	// They still roll up into the root total.
	UnassignedEnvelope = "NOT SET"
)

// Ancestors returns the full ancestor chain of an envelope path, self first
// and the root (empty path) last. Ancestors("A:B:C") is
// ["A:B:C", "A:B", "A", ""]; Ancestors("") is [""].
func Ancestors(envelope string) []string {
	if envelope == RootEnvelope {
		return []string{RootEnvelope}
	}

	segments := strings.Split(envelope, EnvelopeSeparator)
	chain := make([]string, 0, len(segments)+1)
	for i := len(segments); i >= 0; i-- {
		chain = append(chain, strings.Join(segments[:i], EnvelopeSeparator))
	}
	return chain
}

// SplitTransfer splits a transfer envelope string of the form
// "<source>-><destination>" into its two envelope paths. A string without
// the arrow is a configuration error.
func SplitTransfer(envelope string) (source, destination string, err error) {
	parts := strings.SplitN(envelope, TransferArrow, 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: %q is missing the %q delimiter", common.ErrMalformedTransfer, envelope, TransferArrow)
	}
	return parts[0], parts[1], nil
}
