// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

package packet

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Frame is the envelope the protocol decoder sends over the ingest
// boundary: a kind tag plus the variant payload.
type Frame struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Decode turns a frame into its typed packet variant. A kind outside the
// family yields *UnknownKindError; a malformed payload yields a decode
// error naming the kind.
func Decode(frame Frame) (Packet, error) {
	var (
		pkt Packet
		err error
	)

	switch frame.Kind {
	case KindEntityAction:
		var p EntityAction
		if err = json.Unmarshal(frame.Payload, &p); err == nil && !ValidAction(p.Action) {
			err = fmt.Errorf("unknown entity action %q", p.Action)
		}
		pkt = p
	case KindFlying:
		var p Flying
		err = json.Unmarshal(frame.Payload, &p)
		pkt = p
	case KindAbilities:
		var p Abilities
		err = json.Unmarshal(frame.Payload, &p)
		pkt = p
	case KindVelocity:
		var p Velocity
		err = json.Unmarshal(frame.Payload, &p)
		pkt = p
	case KindTeleport:
		var p Teleport
		err = json.Unmarshal(frame.Payload, &p)
		pkt = p
	default:
		return nil, &UnknownKindError{Kind: frame.Kind}
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", frame.Kind, err)
	}
	return pkt, nil
}
