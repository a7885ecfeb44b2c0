/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Hashable prints the digest of a payload instead of the payload itself
type Hashable []byte

func (h Hashable) String() string {
	if len(h) == 0 {
		return ""
	}
	d := sha3.Sum256(h)
	return base64.StdEncoding.EncodeToString(d[:])
}

// Prefix truncates long identifiers in log lines
func Prefix(id string) fmt.Stringer {
	return prefix(id)
}

type prefix string

func (w prefix) String() string {
	s := string(w)
	if len(s) <= 20 {
		return s
	}
	return fmt.Sprintf("%s~", s[:20])
}
