// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the rsaclass command line using Cobra. It wires
// configuration, logging, i18n and the keyring, and delegates the actual
// work to the core facades.
package cli
