// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package keygen

import "github.com/toeirei/rsaclass/internal/model"

// demoKeypairs are handed out when derivation fails. Every entry satisfies
// e*d = 1 (mod phi).
var demoKeypairs = []model.Keypair{
	{N: 3233, E: 17, D: 2753, P: 61, Q: 53, Phi: 3120},
	{N: 3127, E: 3, D: 2011, P: 53, Q: 59, Phi: 3016},
	{N: 4087, E: 7, D: 2263, P: 61, Q: 67, Phi: 3960},
	{N: 4699, E: 5, D: 3629, P: 37, Q: 127, Phi: 4536},
	{N: 5561, E: 7, D: 4639, P: 67, Q: 83, Phi: 5412},
}

// DemoKeypairs returns a copy of the demonstration table.
func DemoKeypairs() []model.Keypair {
	out := make([]model.Keypair, len(demoKeypairs))
	copy(out, demoKeypairs)
	for i := range out {
		out[i].Source = model.SourceFallback
	}
	return out
}
