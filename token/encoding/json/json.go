/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package json

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Unmarshal is json.Unmarshal with unknown fields and trailing data disallowed
func Unmarshal(data []byte, v interface{}) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after json value")
	}
	return nil
}

var (
	Marshal       = json.Marshal
	MarshalIndent = json.MarshalIndent
)
