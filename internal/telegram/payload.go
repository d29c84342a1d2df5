package telegram

import (
	"strconv"
	"strings"
)

// Callback payload prefixes. The remainder encodes the subject user id:
// the candidate for verification, the target for vote-to-ban.
const (
	VerifyPrefix      = "verify_"
	VoteBanPrefix     = "voteban_"
	VoteForgivePrefix = "voteforgive_"
)

// PayloadUserID extracts the user id encoded after the prefix.
func PayloadUserID(data, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(data), prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// VerifyPayload encodes the candidate user id for the challenge button.
func VerifyPayload(userID int64) string {
	return VerifyPrefix + strconv.FormatInt(userID, 10)
}

// VoteBanPayload encodes the target user id for the ban button.
func VoteBanPayload(targetID int64) string {
	return VoteBanPrefix + strconv.FormatInt(targetID, 10)
}

// VoteForgivePayload encodes the target user id for the forgive button.
func VoteForgivePayload(targetID int64) string {
	return VoteForgivePrefix + strconv.FormatInt(targetID, 10)
}
