package bmt

import "errors"

var (
	// ErrOffsetOutOfRange is returned when a leaf offset
	// does not address a leaf of the tree.
	ErrOffsetOutOfRange = errors.New("leaf offset out of range")

	// ErrLeafAbsent is returned from [*Tree.ProveInclusion]
	// when the requested leaf has not been set.
	ErrLeafAbsent = errors.New("leaf absent")

	// ErrSiblingAbsent is returned from [*Tree.ProveInclusion]
	// when any node needed for the proof has not been computed.
	ErrSiblingAbsent = errors.New("sibling absent")

	// ErrRootNotReady is returned from [*Tree.Root]
	// until every leaf in the tree has been set.
	ErrRootNotReady = errors.New("root not ready")

	// ErrMalformedProof is returned from [VerifyProof]
	// when the proof is structurally invalid,
	// as opposed to merely failing to match the expected root.
	ErrMalformedProof = errors.New("malformed proof")

	ErrDigestSize = errors.New("digest has wrong size")

	ErrInvalidConfig = errors.New("invalid tree config")
)
