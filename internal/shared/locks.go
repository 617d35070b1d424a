package shared

import (
	"hash/fnv"
	"strings"
)

// PartyLockKey maps a supplier name onto the int64 key space used by
// pg_advisory_xact_lock. Names are compared after trimming, like everywhere
// else in the supplier ledger.
func PartyLockKey(partyName string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("party:"))
	_, _ = h.Write([]byte(strings.TrimSpace(partyName)))
	return int64(h.Sum64())
}

