/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	identityNameField      protowire.Number = 1
	identityPublicKeyField protowire.Number = 2
)

// Identity is the serialized form of a party on the ledger.
// It carries the party's name and the public key that verifies its signatures,
// therefore a verifier can always be derived from the identity alone.
type Identity []byte

// NewIdentity serializes the passed name and public key into an Identity
func NewIdentity(name string, publicKey []byte) Identity {
	var raw []byte
	raw = protowire.AppendTag(raw, identityNameField, protowire.BytesType)
	raw = protowire.AppendString(raw, name)
	raw = protowire.AppendTag(raw, identityPublicKeyField, protowire.BytesType)
	raw = protowire.AppendBytes(raw, publicKey)
	return raw
}

// Deserialize returns the name and public key carried by this identity
func (id Identity) Deserialize() (string, []byte, error) {
	var name string
	var publicKey []byte
	raw := []byte(id)
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return "", nil, errors.Wrap(protowire.ParseError(n), "failed parsing identity tag")
		}
		raw = raw[n:]
		if typ != protowire.BytesType {
			return "", nil, errors.Errorf("unexpected wire type [%d] for field [%d]", typ, num)
		}
		v, n := protowire.ConsumeBytes(raw)
		if n < 0 {
			return "", nil, errors.Wrap(protowire.ParseError(n), "failed parsing identity field")
		}
		raw = raw[n:]
		switch num {
		case identityNameField:
			name = string(v)
		case identityPublicKeyField:
			publicKey = append([]byte(nil), v...)
		default:
			return "", nil, errors.Errorf("unknown identity field [%d]", num)
		}
	}
	if len(publicKey) == 0 {
		return "", nil, errors.New("identity carries no public key")
	}
	return name, publicKey, nil
}

// Name returns the name carried by this identity, or the empty string if the identity is malformed
func (id Identity) Name() string {
	name, _, err := id.Deserialize()
	if err != nil {
		return ""
	}
	return name
}

// Equal returns true if the identities are byte-wise equal
func (id Identity) Equal(id2 Identity) bool {
	return bytes.Equal(id, id2)
}

// IsNone returns true if the identity is empty
func (id Identity) IsNone() bool {
	return len(id) == 0
}

// UniqueID returns a string that can be used as a map key for this identity
func (id Identity) UniqueID() string {
	return hex.EncodeToString(id)
}

func (id Identity) String() string {
	if id.IsNone() {
		return "<none>"
	}
	if name := id.Name(); len(name) != 0 {
		return name
	}
	return base64.StdEncoding.EncodeToString(id)
}
