package event

// Event kinds defined by the base protocol. The content and tag
// conventions for each kind are documented in the corresponding NIPs.
const (
	KindSetMetadata     = 0
	KindTextNote        = 1
	KindRecommendRelay  = 2
	KindContactList     = 3
	KindEncryptedDM     = 4
	KindDeletion        = 5
	KindReaction        = 7
	KindReplaceableBase = 10000
	KindEphemeralBase   = 20000
)

// MaxKind is the highest kind number the base protocol allows.
const MaxKind = 65535

// IsReplaceable reports whether kind falls in the NIP-16 replaceable
// range 10000 <= kind < 20000.
func IsReplaceable(kind int) bool {
	return kind >= KindReplaceableBase && kind < KindEphemeralBase
}

// IsEphemeral reports whether kind falls in the NIP-16 ephemeral
// range 20000 <= kind < 30000.
func IsEphemeral(kind int) bool {
	return kind >= KindEphemeralBase && kind < 30000
}
