/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ttx

// Phase is the position of a party in the endorsement protocol
type Phase int

const (
	// initiator phases

	Building Phase = iota
	SelfVerified
	SelfSigned
	AwaitingCountersignature
	FullySigned

	// responder phases

	AwaitingProposal
	Verifying
	Signing
	Signed

	Aborted
)

var phaseNames = map[Phase]string{
	Building:                 "Building",
	SelfVerified:             "SelfVerified",
	SelfSigned:               "SelfSigned",
	AwaitingCountersignature: "AwaitingCountersignature",
	FullySigned:              "FullySigned",
	AwaitingProposal:         "AwaitingProposal",
	Verifying:                "Verifying",
	Signing:                  "Signing",
	Signed:                   "Signed",
	Aborted:                  "Aborted",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "Unknown"
}

// Completed returns true if the party holds every signature it is responsible for
func (p Phase) Completed() bool {
	return p == FullySigned || p == Signed
}

var transitions = map[Phase][]Phase{
	Building:                 {SelfVerified},
	SelfVerified:             {SelfSigned},
	SelfSigned:               {AwaitingCountersignature, FullySigned},
	AwaitingCountersignature: {FullySigned},
	AwaitingProposal:         {Verifying},
	Verifying:                {Signing},
	Signing:                  {Signed},
}

// CanTransition returns true if the state machine allows to move from p to next.
// Every phase but Aborted itself can move to Aborted, a signed transaction is discarded if finalization fails.
func (p Phase) CanTransition(next Phase) bool {
	if next == Aborted {
		return p != Aborted
	}
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}
